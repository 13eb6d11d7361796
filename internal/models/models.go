package models

import "time"

// PropertyPreview is the read-only projection of a property returned by
// invite validation. The client never mutates it.
type PropertyPreview struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Unit         string `json:"unit,omitempty"`
	LandlordName string `json:"landlord_name,omitempty"`
}

type InviteKind string

const (
	InviteKindToken InviteKind = "token"
	// InviteKindLegacyPropertyID is the pre-token invite flow where owners
	// shared a raw property ID. Resolved through a server-side exchange and
	// then handled as a normal token.
	InviteKindLegacyPropertyID InviteKind = "legacy-property-id"
)

// PendingInvite is an invite parked locally because acceptance could not
// complete immediately. At most one exists per device; saving overwrites.
type PendingInvite struct {
	Value    string                 `json:"value"`
	Kind     InviteKind             `json:"kind"`
	SavedAt  time.Time              `json:"saved_at"`
	Metadata *PendingInviteMetadata `json:"metadata,omitempty"`
}

type PendingInviteMetadata struct {
	PropertyID   string `json:"property_id,omitempty"`
	PropertyName string `json:"property_name,omitempty"`
}

// CachedPreview is the last successfully fetched preview for a token, kept
// for offline viewing only. Never used to authorize acceptance.
type CachedPreview struct {
	Token    string          `json:"token"`
	Property PropertyPreview `json:"property"`
	CachedAt time.Time       `json:"cached_at"`
}

type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	// Onboarded reports whether the account has a completed tenant profile.
	// Fresh sign-ups accept invites through the atomic profile+link path.
	Onboarded bool `json:"onboarded"`
}

type Session struct {
	AccessToken string    `json:"access_token"`
	Identity    Identity  `json:"identity"`
	CreatedAt   time.Time `json:"created_at"`
}
