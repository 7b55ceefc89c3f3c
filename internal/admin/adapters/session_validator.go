package adapters

import (
	"context"
	"time"

	"civicchain/internal/admin/models"
	id "civicchain/pkg/domain"
	adminmw "civicchain/pkg/platform/middleware/admin"
	"civicchain/pkg/requestcontext"
)

// SessionService is the part of the admin service the middleware needs.
type SessionService interface {
	Validate(ctx context.Context, sessionID id.AdminSessionID) (*models.Session, error)
	ExpiringSoon(session *models.Session, now time.Time) bool
}

// SessionValidatorAdapter lets the admin middleware check sessions
// without importing the admin module.
type SessionValidatorAdapter struct {
	service SessionService
}

func NewSessionValidatorAdapter(service SessionService) *SessionValidatorAdapter {
	return &SessionValidatorAdapter{service: service}
}

func (a *SessionValidatorAdapter) ValidateSession(ctx context.Context, sessionID id.AdminSessionID) (*adminmw.SessionInfo, error) {
	session, err := a.service.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &adminmw.SessionInfo{
		SessionID:    session.ID,
		Email:        session.Email,
		ExpiresAt:    session.ExpiresAt,
		ExpiringSoon: a.service.ExpiringSoon(session, requestcontext.Now(ctx)),
	}, nil
}
