package sessionauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = fmt.Errorf("invalid token")

type JWTManager struct {
	secret                []byte
	expirationMiliseconds int64
}

// NewJWTManager creates a new JWTManager instance based on the provided secret and expirationMiliseconds.
func NewJWTManager(secret string, expirationMiliseconds int64) (*JWTManager, error) {
	const minSecretSize = 12
	if len(secret) < minSecretSize {
		return nil, fmt.Errorf("secret is required to have at least %d characteres", minSecretSize)
	}

	const minExpirationMiliseconds = 5000
	if expirationMiliseconds < minExpirationMiliseconds {
		return nil, fmt.Errorf("expiration miliseconds is required to be at least %d", minExpirationMiliseconds)
	}

	return &JWTManager{secret: []byte(secret), expirationMiliseconds: expirationMiliseconds}, nil
}

// GenerateSessionToken will generate a session proof token string for the
// provided wallet address and session ID. The claims are validated before
// generating the token.
func (manager *JWTManager) GenerateSessionToken(walletAddress, sessionID string) (string, error) {
	claims := SessionJWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   walletAddress,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Millisecond * time.Duration(manager.expirationMiliseconds))),
		},
	}
	err := claims.Valid()
	if err != nil {
		return "", fmt.Errorf("validating session token claims: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(manager.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}

	return signedToken, nil
}

// ParseSessionTokenClaims will parse the provided token string and return the
// SessionJWTClaims, if possible. If the token is not a valid session proof, an
// error is returned instead.
func (manager *JWTManager) ParseSessionTokenClaims(tokenString string) (*SessionJWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return manager.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionJWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
