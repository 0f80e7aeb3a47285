package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims struct for JWT claims
type Claims struct {
	ExtraClaims interface{} `json:"extra_claims,omitempty"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator mints the HS256 bearer tokens accepted by the linkage API.
// The subject is the local user id.
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken creates a token for localUserID valid for expiry
func (g *JwtTokenGenerator) GenerateToken(localUserID uuid.UUID, expiry time.Duration, extraClaims map[string]interface{}) (string, time.Time, error) {
	if localUserID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("subject is required")
	}
	if expiry <= 0 {
		return "", time.Time{}, fmt.Errorf("expiry must be positive")
	}

	now := time.Now().UTC()
	claims := Claims{
		ExtraClaims: extraClaims,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   localUserID.String(),
			ID:        uuid.New().String(),
		},
	}
	if g.Audience != "" {
		claims.Audience = jwt.ClaimStrings{g.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign JWT", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return token, err
	}
	if !token.Valid {
		return token, fmt.Errorf("failed_parse_token_claims")
	}
	return token, nil
}

// LocalUserID returns the subject of a valid token
func (g *JwtTokenGenerator) LocalUserID(tokenStr string) (uuid.UUID, error) {
	token, err := g.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}
