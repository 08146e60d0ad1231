package internal

import "net/url"

// Principal is the security identity a channel's content runs with.
// The dispatcher treats it as opaque.
type Principal interface {
	PrincipalOrigin() string
}

// SystemPrincipal is the elevated identity granted by a host to its own
// content. Identity is by pointer.
type SystemPrincipal struct {
	name string
}

// NewSystemPrincipal returns a distinct system principal.
func NewSystemPrincipal(name string) *SystemPrincipal {
	return &SystemPrincipal{name: name}
}

func (p *SystemPrincipal) PrincipalOrigin() string {
	if p.name == "" {
		return "[System Principal]"
	}
	return "[System Principal " + p.name + "]"
}

// CodebasePrincipal is the identity of content loaded from an origin.
type CodebasePrincipal struct {
	Origin string
}

// NewCodebasePrincipal returns the principal for u's scheme and host.
func NewCodebasePrincipal(u *url.URL) CodebasePrincipal {
	if u == nil {
		return CodebasePrincipal{}
	}
	return CodebasePrincipal{Origin: u.Scheme + "://" + u.Host}
}

func (p CodebasePrincipal) PrincipalOrigin() string { return p.Origin }

// internalPrincipal owns channels the dispatcher creates itself when no
// host is configured.
var internalPrincipal = NewSystemPrincipal("internal")
