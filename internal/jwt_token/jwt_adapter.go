package jwttoken

import (
	authmw "regdesk/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.SessionClaims {
	out := &authmw.SessionClaims{
		Subject:   claims.Subject,
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}

// ValidateToken satisfies the admin middleware's session validator.
func (s *SessionService) ValidateToken(tokenString string) (*authmw.SessionClaims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
