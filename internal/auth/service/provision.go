package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"nightout/internal/auth/models"
	"nightout/internal/platform/tracer"
	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
)

// Outcome describes what a provisioning attempt did.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExists  Outcome = "exists"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ProvisionResult reports one background provisioning attempt.
type ProvisionResult struct {
	UserID   uuid.UUID
	Provider string
	Outcome  Outcome
	Err      error
}

// Provisioned delivers the result of every background provisioning job. Results are
// dropped when the channel is full; it is closed by Stop.
func (s *Service) Provisioned() <-chan ProvisionResult {
	return s.results
}

// Provision creates a profile for user if they signed in with a social provider and
// have none yet. It never touches the auth state.
func (s *Service) Provision(ctx context.Context, user *models.User) (outcome Outcome, err error) {
	if user == nil {
		return OutcomeSkipped, nil
	}
	provider := user.Provider()
	if s.profiles == nil || !slices.Contains(s.socialProviders, provider) {
		return OutcomeSkipped, nil
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanProvision,
		tracer.String(tracer.AttrUserID, user.ID.String()),
		tracer.String(tracer.AttrProvider, provider),
	)
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
		span.End(err)
		if s.metrics != nil {
			s.metrics.IncrementProvisioning(string(outcome))
			s.metrics.ObserveProvisionDuration(float64(time.Since(start).Milliseconds()))
		}
	}()

	existing, err := s.profiles.FindByID(ctx, user.ID)
	switch {
	case err == nil && existing != nil:
		return OutcomeExists, nil
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
	default:
		return OutcomeFailed, translateStoreError(err, "failed to look up profile")
	}

	profile := models.NewProfileFor(user, s.now())
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return OutcomeFailed, translateStoreError(err, "failed to create profile")
	}
	s.logger.InfoContext(ctx, "profile provisioned",
		"user_id", user.ID.String(),
		"provider", provider,
		"username", profile.Username,
	)
	return OutcomeCreated, nil
}

// enqueueProvision hands user to the worker without blocking the notification path.
func (s *Service) enqueueProvision(ctx context.Context, user *models.User) {
	if !slices.Contains(s.socialProviders, user.Provider()) || s.profiles == nil {
		return
	}
	select {
	case s.jobs <- user:
	default:
		s.logger.WarnContext(ctx, "provisioning queue full, dropping job", "user_id", user.ID.String())
		if s.metrics != nil {
			s.metrics.IncrementProvisionDropped()
		}
	}
}

func (s *Service) runProvisioner(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case user := <-s.jobs:
			outcome, err := s.Provision(ctx, user)
			if err != nil {
				s.logger.ErrorContext(ctx, "profile provisioning failed",
					"user_id", user.ID.String(),
					"error", err,
				)
			}
			s.publishResult(ProvisionResult{
				UserID:   user.ID,
				Provider: user.Provider(),
				Outcome:  outcome,
				Err:      err,
			})
		}
	}
}

func (s *Service) publishResult(r ProvisionResult) {
	select {
	case s.results <- r:
	default:
		s.logger.Debug("provisioning result dropped, no reader", "user_id", r.UserID.String())
	}
}

func translateStoreError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
