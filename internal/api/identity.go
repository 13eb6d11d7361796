package api

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"rentlink/internal/models"
)

type accessClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	Onboarded   bool   `json:"onboarded"`
	jwt.RegisteredClaims
}

// IdentityFromToken reads the identity claims out of an access token. The
// token is not verified here; the backend is the authority on its validity
// and rejects bad tokens on every call. The client only needs the claims to
// decide which acceptance path applies and to detect a recipient mismatch.
func IdentityFromToken(raw string) (models.Identity, error) {
	var claims accessClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("access token has no subject")
	}

	return models.Identity{
		UserID:      claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Onboarded:   claims.Onboarded,
	}, nil
}
