package sessionkit

import (
	"errors"

	"github.com/halyard-auth/sessionkit/envelope"
)

// Builder assembles an [Engine]. Configure, then call Build exactly once;
// all validation happens at Build so construction is allocation-only.
type Builder struct {
	config    Config
	directory DirectoryClient
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithDirectory sets the directory-service client the Engine resolves
// users, organizations, and token refreshes against. Required.
func (b *Builder) WithDirectory(client DirectoryClient) *Builder {
	b.directory = client
	return b
}

// WithAuditSink sets the audit event destination. Ignored unless
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.directory == nil {
		return nil, errors.New("directory client required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	sealer, err := envelope.NewSealer(b.config.Cookie.Password)
	if err != nil {
		return nil, err
	}

	b.built = true

	return &Engine{
		config:    b.config,
		sealer:    sealer,
		directory: b.directory,
		metrics:   NewMetrics(b.config.Metrics),
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink),
	}, nil
}
