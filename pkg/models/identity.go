package models

import "github.com/google/uuid"

// IdentityKind distinguishes authenticated users from anonymous callers.
type IdentityKind string

const (
	IdentityUser      IdentityKind = "user"
	IdentityAnonymous IdentityKind = "anonymous"
)

// Identity is the unit of quota and data scoping: an authenticated user id,
// or an anonymous caller's network address. Anonymous identities are weaker
// (spoofable, shared behind NAT) and get a lower trust tier: their scans are
// never persisted server-side.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// UserIdentity builds an identity for an authenticated user.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{Kind: IdentityUser, Value: userID.String()}
}

// AnonymousIdentity builds an identity from a caller's network address.
func AnonymousIdentity(addr string) Identity {
	return Identity{Kind: IdentityAnonymous, Value: addr}
}

// IsAnonymous reports whether the identity is an anonymous network address.
func (i Identity) IsAnonymous() bool {
	return i.Kind == IdentityAnonymous
}

// Key returns the usage-counter key for this identity. User and anonymous
// keys are prefixed separately so a spoofed address can never collide with
// a user id.
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.Value
}

// UserID parses the identity value as a user UUID.
// Returns uuid.Nil for anonymous identities.
func (i Identity) UserID() uuid.UUID {
	if i.Kind != IdentityUser {
		return uuid.Nil
	}
	id, err := uuid.Parse(i.Value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
