package models

import "strings"

// Scope selects which pipeline endpoint the client calls. It is a UX hint;
// the backend decides what the caller may see.
type Scope int

const (
	ScopeFull Scope = iota
	ScopeRestricted
)

func (s Scope) String() string {
	if s == ScopeRestricted {
		return "restricted"
	}
	return "full"
}

// Session is the credential and role cached on this machine
type Session struct {
	Token string `yaml:"token" json:"-"`
	Role  string `yaml:"role" json:"role"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
}

// SignedIn reports whether a token is present
func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Scope maps the cached role to an endpoint: sellers and plain users only get
// their own pipeline.
func (s Session) Scope() Scope {
	switch strings.ToLower(strings.TrimSpace(s.Role)) {
	case "seller", "user":
		return ScopeRestricted
	}
	return ScopeFull
}
