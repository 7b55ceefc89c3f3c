// Package service suggests a department and a priority for grievance text.
// The remote classifier is optional: every lookup has a local answer, so
// callers never see an error from this package.
package service

import (
	"context"
	"log/slog"
	"time"

	"civicchain/internal/suggestion/metrics"
	"civicchain/internal/suggestion/models"
	"civicchain/pkg/platform/circuit"
	"civicchain/pkg/requestcontext"
)

// Classifier is the remote model behind the suggestions.
type Classifier interface {
	SuggestDepartment(ctx context.Context, text string) (*models.DepartmentSuggestion, error)
	AnalyzePriority(ctx context.Context, text string) (*models.PriorityAnalysis, error)
}

type Service struct {
	classifier       Classifier
	failureThreshold int
	retryInterval    time.Duration
	departmentCB     *circuit.Breaker
	priorityCB       *circuit.Breaker
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClassifier sets the remote classifier. Without one every lookup uses
// the keyword table.
func WithClassifier(c Classifier, failureThreshold int) Option {
	return func(s *Service) {
		s.classifier = c
		s.failureThreshold = failureThreshold
	}
}

// WithRetryInterval sets how often an open breaker retries the classifier.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Service) {
		s.retryInterval = d
	}
}

func New(opts ...Option) *Service {
	s := &Service{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.classifier != nil {
		breakerOpts := []circuit.Option{
			circuit.WithFailureThreshold(s.failureThreshold),
			circuit.WithRetryInterval(s.retryInterval),
		}
		s.departmentCB = circuit.New("suggestion.department", breakerOpts...)
		s.priorityCB = circuit.New("suggestion.priority", breakerOpts...)
	}
	return s
}

func (s *Service) SuggestDepartment(ctx context.Context, text string) *models.DepartmentSuggestion {
	if s.classifier == nil || !s.departmentCB.Allow(requestcontext.Now(ctx)) {
		s.metrics.IncRequest("department", string(models.SourceFallback))
		return keywordDepartment(text)
	}

	got, err := s.classifier.SuggestDepartment(ctx, text)
	if err != nil {
		_, change := s.departmentCB.RecordFailure()
		s.onChange(ctx, "department", change)
		s.logger.WarnContext(ctx, "department classifier failed, using keyword table",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.metrics.IncRequest("department", string(models.SourceFallback))
		return keywordDepartment(text)
	}

	usePrimary, change := s.departmentCB.RecordSuccess()
	s.onChange(ctx, "department", change)
	if !usePrimary {
		s.metrics.IncRequest("department", string(models.SourceFallback))
		return keywordDepartment(text)
	}
	s.metrics.IncRequest("department", string(models.SourceClassifier))
	return got
}

func (s *Service) AnalyzePriority(ctx context.Context, text string) *models.PriorityAnalysis {
	if s.classifier == nil || !s.priorityCB.Allow(requestcontext.Now(ctx)) {
		s.metrics.IncRequest("priority", string(models.SourceFallback))
		return defaultPriority()
	}

	got, err := s.classifier.AnalyzePriority(ctx, text)
	if err == nil && !validPriority(got.Priority) {
		s.logger.WarnContext(ctx, "priority classifier returned unknown level",
			"request_id", requestcontext.RequestID(ctx),
			"priority", got.Priority,
		)
		s.metrics.IncRequest("priority", string(models.SourceFallback))
		return defaultPriority()
	}
	if err != nil {
		_, change := s.priorityCB.RecordFailure()
		s.onChange(ctx, "priority", change)
		s.logger.WarnContext(ctx, "priority classifier failed, using default priority",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.metrics.IncRequest("priority", string(models.SourceFallback))
		return defaultPriority()
	}

	usePrimary, change := s.priorityCB.RecordSuccess()
	s.onChange(ctx, "priority", change)
	if !usePrimary {
		s.metrics.IncRequest("priority", string(models.SourceFallback))
		return defaultPriority()
	}
	s.metrics.IncRequest("priority", string(models.SourceClassifier))
	return got
}

func (s *Service) Suggest(ctx context.Context, text string) *models.SuggestResponse {
	return &models.SuggestResponse{
		Department: *s.SuggestDepartment(ctx, text),
		Priority:   *s.AnalyzePriority(ctx, text),
	}
}

func (s *Service) onChange(ctx context.Context, kind string, change circuit.Change) {
	switch {
	case change.Opened:
		s.logger.WarnContext(ctx, "classifier circuit opened", "kind", kind)
		s.metrics.SetBreakerOpen(kind, true)
	case change.Closed:
		s.logger.InfoContext(ctx, "classifier circuit closed", "kind", kind)
		s.metrics.SetBreakerOpen(kind, false)
	}
}

func validPriority(p string) bool {
	switch p {
	case "low", "medium", "high", "urgent":
		return true
	}
	return false
}
