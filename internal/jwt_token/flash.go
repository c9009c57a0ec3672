package jwttoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "regdesk/pkg/domain-errors"
)

const flashAudience = "regdesk-flash"

// FlashClaims carries a one-off dashboard notice through a redirect.
type FlashClaims struct {
	Level   string `json:"lvl"`
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

// IssueFlash signs a notice so the dashboard only shows messages it produced.
func (s *SessionService) IssueFlash(level, message string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, FlashClaims{
		Level:   level,
		Message: message,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  []string{flashAudience},
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign notice")
	}
	return signed, nil
}

// ValidateFlash returns the level and message of a notice issued by IssueFlash.
func (s *SessionService) ValidateFlash(tokenString string) (level, message string, err error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &FlashClaims{}, s.keyFunc,
		jwt.WithIssuer(issuer),
		jwt.WithAudience(flashAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "invalid notice")
	}
	claims, ok := parsed.Claims.(*FlashClaims)
	if !ok || !parsed.Valid {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "invalid notice")
	}
	return claims.Level, claims.Message, nil
}
