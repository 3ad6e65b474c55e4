package service

import (
	"errors"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"nightout/internal/auth/service/mocks"
	"nightout/internal/onboarding"
	"nightout/internal/outing/store"
	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
)

func (s *ServiceSuite) seedFlags() {
	s.Require().NoError(s.flags.Set(s.ctx, onboarding.KeyOnboardingSeen, "true"))
	s.Require().NoError(s.flags.Set(s.ctx, onboarding.KeySetupCompleted, "true"))
	s.Require().NoError(s.flags.Set(s.ctx, store.Key, `{"groupTotal":12}`))
}

func (s *ServiceSuite) TestSignOutClearsFlagsButNotStatistics() {
	s.seedFlags()
	s.mockPlatform.EXPECT().SignOut(gomock.Any()).Return(nil)

	s.Require().NoError(s.service.SignOut(s.ctx))

	_, err := s.flags.Get(s.ctx, onboarding.KeyOnboardingSeen)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.flags.Get(s.ctx, onboarding.KeySetupCompleted)
	s.ErrorIs(err, sentinel.ErrNotFound)

	raw, err := s.flags.Get(s.ctx, store.Key)
	s.Require().NoError(err)
	s.JSONEq(`{"groupTotal":12}`, raw)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.SignOuts.WithLabelValues("success")))
}

func (s *ServiceSuite) TestSignOutWithoutFlagsSucceeds() {
	s.mockPlatform.EXPECT().SignOut(gomock.Any()).Return(nil)
	s.Require().NoError(s.service.SignOut(s.ctx))
}

func (s *ServiceSuite) TestSignOutPlatformFailureKeepsFlags() {
	s.seedFlags()
	s.mockPlatform.EXPECT().SignOut(gomock.Any()).Return(errors.Join(sentinel.ErrUnauthorized, errors.New("401")))

	err := s.service.SignOut(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	status, err := onboarding.New(s.flags).Status(s.ctx)
	s.Require().NoError(err)
	s.True(status.OnboardingSeen)
	s.True(status.SetupCompleted)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.SignOuts.WithLabelValues("failure")))
}

func (s *ServiceSuite) TestSignOutFlagFailureReported() {
	s.mockPlatform.EXPECT().SignOut(gomock.Any()).Return(nil)
	flags := mocks.NewMockFlagStore(s.ctrl)
	flags.EXPECT().Remove(gomock.Any(), onboarding.KeyOnboardingSeen).Return(errors.New("read-only"))
	flags.EXPECT().Remove(gomock.Any(), onboarding.KeySetupCompleted).Return(nil)

	svc := New(s.mockPlatform, flags)
	err := svc.SignOut(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Contains(err.Error(), "signed out")
}
