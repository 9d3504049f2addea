package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSessionID = errors.New("missing sid in customer token")
	ErrUnknownRole      = errors.New("unknown role")
)

// Claims represents the token claims
type Claims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	SessionID string `json:"sid,omitempty"`
	Operator  string `json:"operator,omitempty"`
}

// SessionUUID parses the shopping session id
func (c *Claims) SessionUUID() (uuid.UUID, error) {
	return uuid.Parse(c.SessionID)
}

// Can reports whether the token role grants the capability
func (c *Claims) Can(capability Capability) bool {
	return c.Role.Can(capability)
}

// ExpiresAtTime returns the token expiry
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// JWTService signs and validates session and operator tokens
type JWTService struct {
	secret          []byte
	issuer          string
	staffExpiration time.Duration
	now             func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:          []byte(cfg.Secret),
		issuer:          cfg.Issuer,
		staffExpiration: cfg.StaffExpiration,
		now:             time.Now,
	}
}

// GenerateSessionToken signs a CUSTOMER token bound to a shopping session.
// The token expires with the session.
func (s *JWTService) GenerateSessionToken(sessionID uuid.UUID, expiresAt time.Time) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: s.registered(sessionID.String(), now, expiresAt),
		Role:             RoleCustomer,
		SessionID:        sessionID.String(),
	}
	return s.sign(claims)
}

// GenerateOperatorToken signs a STAFF or ADMIN token for an operator.
// A zero ttl uses the configured staff expiration.
func (s *JWTService) GenerateOperatorToken(operator string, role Role, ttl time.Duration) (string, time.Time, error) {
	if role != RoleStaff && role != RoleAdmin {
		return "", time.Time{}, ErrUnknownRole
	}
	if operator == "" {
		return "", time.Time{}, ErrInvalidClaims
	}
	if ttl <= 0 {
		ttl = s.staffExpiration
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: s.registered(operator, now, expiresAt),
		Role:             role,
		Operator:         operator,
	}
	token, err := s.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *JWTService) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if !claims.Role.IsValid() {
		return nil, ErrUnknownRole
	}
	if claims.Role == RoleCustomer {
		if _, err := claims.SessionUUID(); err != nil {
			return nil, ErrMissingSessionID
		}
	}
	return claims, nil
}
