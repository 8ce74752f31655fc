package jwttoken

import (
	"errors"
	"time"

	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AudienceAdmin marks bearer tokens for the admin HTTP API.
	AudienceAdmin = "corpauth-admin"
	// AudienceLink marks one-time link tokens handed to a character after login.
	AudienceLink = "corpauth-link"

	RoleAdmin = "admin"
)

// AdminClaims represents the JWT claims of an admin bearer token
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LinkClaims represents the JWT claims of a link token. A token is bound to
// the pending row it was issued for, so it dies with that row.
type LinkClaims struct {
	CharacterID   int64  `json:"character_id"`
	CharacterName string `json:"character_name"`
	LocalID       string `json:"local_id"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation for one audience
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

func (s *JWTService) registered(subject string, expiresIn time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}
}

// GenerateAdminToken mints a bearer token carrying the admin role.
func (s *JWTService) GenerateAdminToken(subject string, expiresIn time.Duration) (string, error) {
	if subject == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	return s.sign(AdminClaims{
		Role:             RoleAdmin,
		RegisteredClaims: s.registered(subject, expiresIn),
	})
}

// GenerateLinkToken mints a link token for a character's pending row.
func (s *JWTService) GenerateLinkToken(characterID id.CharacterID, characterName string, localID id.LocalID, expiresIn time.Duration) (string, *LinkClaims, error) {
	claims := &LinkClaims{
		CharacterID:      int64(characterID),
		CharacterName:    characterName,
		LocalID:          localID.String(),
		RegisteredClaims: s.registered(characterID.String(), expiresIn),
	}
	signed, err := s.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (s *JWTService) sign(claims jwt.Claims) (string, error) {
	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signedToken, nil
}

func (s *JWTService) ValidateAdminToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	return claims, nil
}

func (s *JWTService) ValidateLinkToken(tokenString string) (*LinkClaims, error) {
	claims := &LinkClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.CharacterID <= 0 || claims.ID == "" || claims.LocalID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return nil
}
