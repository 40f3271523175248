package cookie

import (
	"net/http"
	"time"
)

// Options is the fully resolved cookie policy for one write. MaxAge is in
// seconds; zero omits the attribute.
type Options struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Read returns the named cookie's value from a request, or false when the
// cookie is absent.
func Read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ReadHeader is Read over a bare header set, for hosts that expose request
// headers without an *http.Request.
func ReadHeader(h http.Header, name string) (string, bool) {
	return Read(&http.Request{Header: h}, name)
}

// Write appends a Set-Cookie header for value under o to the response.
func Write(w http.ResponseWriter, value string, o Options) {
	WriteHeader(w.Header(), value, o)
}

// WriteHeader is Write over a bare header set.
func WriteHeader(h http.Header, value string, o Options) {
	h.Add("Set-Cookie", encode(value, o))
}

// Clear appends a Set-Cookie header that deletes the cookie: empty value,
// Max-Age=0, Expires in the past.
func Clear(w http.ResponseWriter, o Options) {
	ClearHeader(w.Header(), o)
}

// ClearHeader is Clear over a bare header set.
func ClearHeader(h http.Header, o Options) {
	h.Add("Set-Cookie", encodeExpired(o))
}

// encode is the single Set-Cookie serializer; every shape goes through it
// so outputs stay byte-identical.
func encode(value string, o Options) string {
	c := http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: o.HTTPOnly,
		SameSite: o.SameSite,
	}
	return c.String()
}

func encodeExpired(o Options) string {
	c := http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		Secure:   o.Secure,
		HttpOnly: o.HTTPOnly,
		SameSite: o.SameSite,
	}
	return c.String()
}
