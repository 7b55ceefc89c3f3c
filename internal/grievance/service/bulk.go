package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"civicchain/internal/grievance/models"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/requestcontext"
)

const (
	reasonInvalidID = "invalid grievance id"
	reasonNotFound  = "grievance not found"
	reasonInternal  = "internal error"
)

type bulkOutcome struct {
	id     id.GrievanceID
	raw    string
	reason string
}

// BulkSetStatus applies one transition to many grievances. Each id succeeds
// or fails on its own; the result lists both groups in request order.
func (s *Service) BulkSetStatus(ctx context.Context, req *models.BulkStatusRequest) (*models.BulkResult, error) {
	ctx, span := s.tracer.Start(ctx, "grievance.BulkSetStatus")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.MaxBulkSize > 0 && len(req.IDs) > s.cfg.MaxBulkSize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d ids per request", s.cfg.MaxBulkSize)
	}
	started := time.Now()
	status := models.Status(req.Status)

	outcomes := make([]bulkOutcome, len(req.IDs))
	candidates := make([]id.GrievanceID, 0, len(req.IDs))
	for i, raw := range req.IDs {
		outcomes[i].raw = raw
		gid, err := id.ParseGrievanceID(raw)
		if err != nil {
			outcomes[i].reason = reasonInvalidID
			continue
		}
		outcomes[i].id = gid
		candidates = append(candidates, gid)
	}

	existing, err := s.store.ExistingIDs(ctx, candidates)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up grievances")
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.BulkConcurrency)
	for i := range outcomes {
		o := &outcomes[i]
		if o.reason != "" {
			continue
		}
		if !existing[o.id] {
			o.reason = reasonNotFound
			continue
		}
		g.Go(func() error {
			if _, err := s.transition(ctx, o.id, status, req.Note); err != nil {
				o.reason = bulkReason(err)
				if o.reason == reasonInternal {
					s.logger.ErrorContext(ctx, "bulk transition item failed",
						"request_id", requestcontext.RequestID(ctx),
						"grievance_id", o.id.String(),
						"error", err,
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &models.BulkResult{
		Updated: make([]id.GrievanceID, 0, len(outcomes)),
		Failed:  make([]models.BulkFailure, 0),
	}
	for _, o := range outcomes {
		if o.reason == "" {
			result.Updated = append(result.Updated, o.id)
			continue
		}
		failedID := o.id
		if failedID == "" {
			failedID = id.GrievanceID(o.raw)
		}
		result.Failed = append(result.Failed, models.BulkFailure{ID: failedID, Reason: o.reason})
	}

	span.SetAttributes(
		attribute.Int("updated", len(result.Updated)),
		attribute.Int("failed", len(result.Failed)),
	)
	s.metrics.ObserveBulk(len(result.Updated), len(result.Failed), time.Since(started).Seconds())
	return result, nil
}

func bulkReason(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return reasonNotFound
	case dErrors.CodeInternal:
		return reasonInternal
	default:
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return coded.Message
		}
		return reasonInternal
	}
}
