package session

import "time"

// Credential is the opaque bearer string presented to the refresh endpoint.
// Its expiry is always re-derived from the string itself (package token) and
// never cached alongside it, so the two cannot drift apart.
type Credential string

// Empty reports whether the credential carries no token at all.
func (c Credential) Empty() bool {
	return c == ""
}

// Identity is the principal bound to the current credential. It is replaced
// atomically with the credential on every successful refresh.
type Identity struct {
	ID          string
	DisplayName string
	Attributes  []string
}

// Session is the credential+identity pair managed by the keeper.
type Session struct {
	Credential Credential
	Identity   Identity

	// IssuedAt records when this pair was obtained, for diagnostics only.
	// Expiry decisions never read it.
	IssuedAt time.Time
}

// Clone returns a deep copy so callers can hand sessions out without
// sharing the attributes slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Identity.Attributes != nil {
		out.Identity.Attributes = append([]string(nil), s.Identity.Attributes...)
	}
	return &out
}
