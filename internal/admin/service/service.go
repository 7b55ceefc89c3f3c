package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"civicchain/internal/admin/metrics"
	"civicchain/internal/admin/models"
	"civicchain/internal/platform/config"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/email"
	"civicchain/pkg/platform/audit"
	"civicchain/pkg/platform/secrets"
	"civicchain/pkg/platform/sentinel"
	"civicchain/pkg/requestcontext"
)

type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.AdminSessionID) (*models.Session, error)
	UpdateExpiry(ctx context.Context, sessionID id.AdminSessionID, expiresAt time.Time) error
	Delete(ctx context.Context, sessionID id.AdminSessionID) error
}

type LockoutStore interface {
	RecordFailure(ctx context.Context, email string, now time.Time, maxFailures int, lockFor time.Duration) (*models.Lockout, error)
	Get(ctx context.Context, email string) (*models.Lockout, error)
	Clear(ctx context.Context, email string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Status is a session as seen at one request time.
type Status struct {
	Session      *models.Session
	Remaining    time.Duration
	ExpiringSoon bool
}

// Service issues and checks operator sessions.
type Service struct {
	sessions       SessionStore
	lockouts       LockoutStore
	operators      map[string]config.Operator
	cfg            config.AdminConfig
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(sessions SessionStore, lockouts LockoutStore, cfg config.AdminConfig, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("admin session store is required")
	}
	if lockouts == nil {
		return nil, errors.New("admin lockout store is required")
	}

	operators := make(map[string]config.Operator, len(cfg.Operators))
	for _, op := range cfg.Operators {
		if op.Name == "" {
			op.Name = email.DisplayName(op.Email)
		}
		operators[strings.ToLower(op.Email)] = op
	}

	s := &Service{
		sessions:  sessions,
		lockouts:  lockouts,
		operators: operators,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login opens a session for a configured operator. An email with
// MaxFailedLogins consecutive failures is refused for LockoutDuration.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	lock, err := s.lockouts.Get(ctx, req.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admin lockout")
	}
	if lock.IsLockedAt(now) {
		secrets.BurnCompare(req.Password)
		s.emit(ctx, audit.EventAdminLoginFailed, req.Email, "locked")
		s.metrics.IncLogin("locked")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "too many failed attempts, try again later")
	}

	op, known := s.operators[req.Email]
	if !known {
		secrets.BurnCompare(req.Password)
		return nil, s.loginFailed(ctx, req.Email, now, "unknown_operator")
	}
	ok, err := secrets.Verify(req.Password, op.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "operator password hash is malformed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, s.loginFailed(ctx, req.Email, now, "malformed_hash")
	}
	if !ok {
		return nil, s.loginFailed(ctx, req.Email, now, "bad_password")
	}

	if err := s.lockouts.Clear(ctx, req.Email); err != nil {
		s.logger.WarnContext(ctx, "failed to clear admin lockout",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}

	ttl := s.cfg.SessionTTL
	if req.RememberMe {
		ttl = s.cfg.RememberTTL
	}
	session, err := models.NewSession(id.NewAdminSessionID(), req.Email, op.Name, req.RememberMe, ttl, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build admin session")
	}
	session.Device = deviceLabel(requestcontext.UserAgent(ctx))
	session.ClientIP = requestcontext.ClientIP(ctx)

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save admin session")
	}

	s.emit(ctx, audit.EventAdminSessionCreated, req.Email, "")
	s.metrics.IncLogin("success")
	s.metrics.IncSessionEvent("created")
	return session, nil
}

func (s *Service) loginFailed(ctx context.Context, email string, now time.Time, reason string) error {
	s.emit(ctx, audit.EventAdminLoginFailed, email, reason)
	s.metrics.IncLogin("failure")

	rec, err := s.lockouts.RecordFailure(ctx, email, now, s.cfg.MaxFailedLogins, s.cfg.LockoutDuration)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record admin login failure",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else if rec.IsLockedAt(now) && rec.Failures == s.cfg.MaxFailedLogins {
		s.logger.WarnContext(ctx, "admin email locked after repeated failures",
			"request_id", requestcontext.RequestID(ctx),
			"locked_until", rec.LockedUntil,
		)
		s.emit(ctx, audit.EventAdminLockout, email, "")
		s.metrics.IncLockout()
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}

// Validate returns the session when it is live at the request time.
func (s *Service) Validate(ctx context.Context, sessionID id.AdminSessionID) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "admin session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin session")
	}
	if !session.IsValidAt(requestcontext.Now(ctx)) {
		s.metrics.IncSessionEvent("expired")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin session expired")
	}
	return session, nil
}

func (s *Service) Status(ctx context.Context, sessionID id.AdminSessionID) (*Status, error) {
	session, err := s.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(ctx, session), nil
}

func (s *Service) statusOf(ctx context.Context, session *models.Session) *Status {
	now := requestcontext.Now(ctx)
	return &Status{
		Session:      session,
		Remaining:    session.Remaining(now),
		ExpiringSoon: session.ExpiringSoon(now, s.cfg.WarnWindow),
	}
}

// Extend resets the expiry of a live session to now plus ExtendTTL.
func (s *Service) Extend(ctx context.Context, sessionID id.AdminSessionID) (*Status, error) {
	session, err := s.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.ExtendFrom(requestcontext.Now(ctx), s.cfg.ExtendTTL)
	if err := s.sessions.UpdateExpiry(ctx, sessionID, session.ExpiresAt); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "admin session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend admin session")
	}

	s.emit(ctx, audit.EventAdminSessionExtended, session.Email, "")
	s.metrics.IncSessionEvent("extended")
	return s.statusOf(ctx, session), nil
}

// Revoke ends the session immediately.
func (s *Service) Revoke(ctx context.Context, sessionID id.AdminSessionID) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "admin session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin session")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke admin session")
	}

	s.emit(ctx, audit.EventAdminSessionRevoked, session.Email, "")
	s.metrics.IncSessionEvent("revoked")
	return nil
}

// ExpiringSoon reports whether session is inside the warning window at now.
func (s *Service) ExpiringSoon(session *models.Session, now time.Time) bool {
	return session.ExpiringSoon(now, s.cfg.WarnWindow)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:  string(action),
		Subject: subject,
		ActorID: subject,
		Reason:  reason,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
}
