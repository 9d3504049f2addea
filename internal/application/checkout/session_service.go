package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an anonymous shopping session lives
const DefaultSessionTTL = 72 * time.Hour

// SessionTokenIssuer signs bearer tokens identifying a shopping session
type SessionTokenIssuer interface {
	GenerateSessionToken(sessionID uuid.UUID, expiresAt time.Time) (string, error)
}

// SessionService starts and looks up shopping sessions
type SessionService struct {
	sessionRepo checkout.SessionRepository
	tokens      SessionTokenIssuer
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(sessionRepo checkout.SessionRepository, tokens SessionTokenIssuer, ttl time.Duration, logger *zap.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		tokens:      tokens,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// Start creates a session and signs a token that expires with it
func (s *SessionService) Start(ctx context.Context) (*SessionResponse, error) {
	session, err := checkout.NewShoppingSession(s.ttl, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateSessionToken(session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Debug("Shopping session started",
		zap.String("session_id", session.ID.String()),
		zap.Time("expires_at", session.ExpiresAt))

	return &SessionResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// RequireActive loads a session and fails with ErrSessionExpired once it has lapsed
func (s *SessionService) RequireActive(ctx context.Context, sessionID uuid.UUID) (*checkout.ShoppingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.EnsureActive(s.now()); err != nil {
		return nil, err
	}
	return session, nil
}
