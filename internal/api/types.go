package api

import "rentlink/internal/models"

type ValidateRequest struct {
	Token string `json:"token"`
}

type ValidateResponse struct {
	Valid         bool                    `json:"valid"`
	Property      *models.PropertyPreview `json:"property,omitempty"`
	IntendedEmail string                  `json:"intended_email,omitempty"`
	// Error is one of expired, revoked, capacity_reached, not_found,
	// malformed when Valid is false.
	Error    string `json:"error,omitempty"`
	UseCount int    `json:"use_count,omitempty"`
	MaxUses  int    `json:"max_uses,omitempty"`
}

type AcceptRequest struct {
	Token string `json:"token"`
}

type AcceptNewAccountRequest struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name,omitempty"`
}

type AcceptResponse struct {
	Success       bool   `json:"success"`
	AlreadyLinked bool   `json:"already_linked,omitempty"`
	PropertyName  string `json:"property_name,omitempty"`
	Error         string `json:"error,omitempty"`
}

type LegacyExchangeResponse struct {
	Token string `json:"token"`
}

type AuthRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
}
