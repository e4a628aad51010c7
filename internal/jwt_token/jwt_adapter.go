package jwttoken

import (
	"dsnap/pkg/platform/middleware/auth"
)

// MiddlewareAdapter exposes JWTService through the auth middleware's TokenValidator port.
type MiddlewareAdapter struct {
	service *JWTService
}

func NewMiddlewareAdapter(service *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*auth.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.TokenClaims{
		StaffID:  claims.Subject,
		Username: claims.Username,
		Scopes:   claims.Scope,
	}, nil
}
