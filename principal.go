package feedgen

import "strings"

// PrincipalType qualifies how the appliance interprets a principal name.
type PrincipalType int

const (
	// PrincipalUnknown lets the appliance look for a domain in the name.
	PrincipalUnknown PrincipalType = iota
	// PrincipalUnqualified keeps the appliance from splitting a domain out
	// of the name.
	PrincipalUnqualified
)

func (t PrincipalType) String() string {
	if t == PrincipalUnqualified {
		return "unqualified"
	}
	return ""
}

// CaseSensitivity is the case matching mode for a principal.
type CaseSensitivity int

const (
	// EverythingCaseSensitive is the appliance default.
	EverythingCaseSensitive CaseSensitivity = iota
	EverythingCaseInsensitive
)

func (c CaseSensitivity) String() string {
	if c == EverythingCaseInsensitive {
		return "everything-case-insensitive"
	}
	return "everything-case-sensitive"
}

// ParseCaseSensitivity accepts the wire spelling; anything else is the
// default.
func ParseCaseSensitivity(s string) CaseSensitivity {
	if strings.EqualFold(strings.TrimSpace(s), EverythingCaseInsensitive.String()) {
		return EverythingCaseInsensitive
	}
	return EverythingCaseSensitive
}

// Principal is a user or group identity.
type Principal struct {
	Name            string
	Namespace       string
	Type            PrincipalType
	CaseSensitivity CaseSensitivity
}

// String returns the principal name.
func (p Principal) String() string { return p.Name }
func (p Principal) isValue()       {}

// principalOf converts any value into a principal. Non-principal values become
// a principal named by their trimmed string form.
func principalOf(v Value) Principal {
	if p, ok := v.(Principal); ok {
		return p
	}
	if p, ok := v.(*Principal); ok && p != nil {
		return *p
	}
	return Principal{Name: strings.TrimSpace(v.String())}
}

// ACLScope is the principal kind of an ACL entry.
type ACLScope string

// ACLAccess is the access granted by an ACL entry.
type ACLAccess string

const (
	ScopeUser  ACLScope = "user"
	ScopeGroup ACLScope = "group"

	AccessPermit ACLAccess = "permit"
	AccessDeny   ACLAccess = "deny"
)
