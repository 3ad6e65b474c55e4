package service

import (
	"context"
	"errors"

	"nightout/internal/onboarding"
	"nightout/internal/platform/tracer"
)

// SignOut ends the platform session, then forgets the first-run flags so the next
// user sees onboarding again. Outing statistics are left alone. When the platform
// refuses, the flags are kept.
func (s *Service) SignOut(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSignOut,
		tracer.String(tracer.AttrUserID, userID(s.State().Session)),
	)
	defer func() {
		span.End(err)
		if s.metrics == nil {
			return
		}
		if err != nil {
			s.metrics.IncrementSignOut("failure")
			return
		}
		s.metrics.IncrementSignOut("success")
	}()

	if err := s.platform.SignOut(ctx); err != nil {
		s.logger.ErrorContext(ctx, "platform sign-out failed", "error", err)
		return translatePlatformError(err, "failed to sign out")
	}

	var flagErrs []error
	for _, key := range onboarding.SignOutKeys() {
		if err := s.flags.Remove(ctx, key); err != nil {
			flagErrs = append(flagErrs, err)
		}
	}
	if len(flagErrs) > 0 {
		err := errors.Join(flagErrs...)
		s.logger.ErrorContext(ctx, "failed to clear first-run flags", "error", err)
		return translateStoreError(err, "signed out but failed to clear first-run flags")
	}
	s.logger.InfoContext(ctx, "signed out")
	return nil
}
