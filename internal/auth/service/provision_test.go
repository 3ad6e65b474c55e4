package service

import (
	"errors"
	"fmt"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"nightout/internal/auth/models"
	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
)

func (s *ServiceSuite) TestProvisionCreatesProfileForSocialUser() {
	user := newUser("google", "Jane.Doe@example.com")
	user.UserMetadata["full_name"] = "Jane Doe"

	s.mockProfiles.EXPECT().FindByID(gomock.Any(), user.ID).
		Return(nil, fmt.Errorf("profile %s: %w", user.ID, sentinel.ErrNotFound))
	s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, p *models.Profile) error {
			s.Equal(user.ID, p.ID)
			s.Equal("janedoe", p.Username)
			s.Equal("Jane Doe", p.FullName)
			s.Equal(s.now, p.CreatedAt)
			return nil
		})

	outcome, err := s.service.Provision(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, outcome)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Provisioning.WithLabelValues("created")))
}

func (s *ServiceSuite) TestProvisionKeepsExistingProfile() {
	for _, provider := range []string{"google", "apple"} {
		s.Run(provider, func() {
			user := newUser(provider, "jane@example.com")
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), user.ID).
				Return(&models.Profile{ID: user.ID, Username: "custom"}, nil)

			outcome, err := s.service.Provision(s.ctx, user)
			s.Require().NoError(err)
			s.Equal(OutcomeExists, outcome)
		})
	}
}

func (s *ServiceSuite) TestProvisionSkipsNonSocialUsers() {
	for _, user := range []*models.User{
		newUser("email", "jane@example.com"),
		newUser("phone", ""),
		{},
		nil,
	} {
		outcome, err := s.service.Provision(s.ctx, user)
		s.Require().NoError(err)
		s.Equal(OutcomeSkipped, outcome)
	}
}

func (s *ServiceSuite) TestProvisionWithoutProfileStoreSkips() {
	svc := New(s.mockPlatform, s.flags)
	outcome, err := svc.Provision(s.ctx, newUser("google", "jane@example.com"))
	s.Require().NoError(err)
	s.Equal(OutcomeSkipped, outcome)
}

func (s *ServiceSuite) TestProvisionCustomProviders() {
	svc := New(s.mockPlatform, s.flags, WithProvisioner(s.mockProfiles, "github"))
	user := newUser("github", "octo@example.com")
	s.mockProfiles.EXPECT().FindByID(gomock.Any(), user.ID).Return(nil, sentinel.ErrNotFound)
	s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	outcome, err := svc.Provision(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, outcome)

	outcome, err = svc.Provision(s.ctx, newUser("google", "jane@example.com"))
	s.Require().NoError(err)
	s.Equal(OutcomeSkipped, outcome)
}

func (s *ServiceSuite) TestProvisionLookupFailure() {
	user := newUser("apple", "jane@example.com")
	s.mockProfiles.EXPECT().FindByID(gomock.Any(), user.ID).
		Return(nil, errors.Join(sentinel.ErrUnavailable, errors.New("conn refused")))

	outcome, err := s.service.Provision(s.ctx, user)
	s.Equal(OutcomeFailed, outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestSignedInNotificationProvisionsInBackground() {
	s.startSignedOut()
	user := newUser("google", "jane@example.com")
	s.mockProfiles.EXPECT().FindByID(gomock.Any(), user.ID).Return(nil, sentinel.ErrNotFound)
	s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	s.notify(models.Notification{Event: models.EventSignedIn, Session: newSession(user)})

	result := s.awaitResult()
	s.Equal(user.ID, result.UserID)
	s.Equal("google", result.Provider)
	s.Equal(OutcomeCreated, result.Outcome)
	s.NoError(result.Err)
}

func (s *ServiceSuite) TestProvisioningFailureDoesNotAffectAuthState() {
	s.startSignedOut()
	user := newUser("google", "jane@example.com")
	s.mockProfiles.EXPECT().FindByID(gomock.Any(), user.ID).Return(nil, sentinel.ErrNotFound)
	s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("permission denied"))

	s.notify(models.Notification{Event: models.EventSignedIn, Session: newSession(user)})

	result := s.awaitResult()
	s.Equal(OutcomeFailed, result.Outcome)
	s.Require().Error(result.Err)
	s.True(dErrors.HasCode(result.Err, dErrors.CodeInternal))

	state := s.service.State()
	s.True(state.Authenticated())
	s.Equal(user.ID, state.User.ID)
}

func (s *ServiceSuite) TestOnlySignedInTriggersProvisioning() {
	s.startSignedOut()
	user := newUser("google", "jane@example.com")

	s.notify(models.Notification{Event: models.EventTokenRefreshed, Session: newSession(user)})
	s.notify(models.Notification{Event: models.EventUserUpdated, Session: newSession(user)})

	select {
	case r := <-s.service.Provisioned():
		s.Failf("unexpected provisioning", "%+v", r)
	default:
	}
}

func (s *ServiceSuite) TestFullQueueDropsJobs() {
	svc := New(s.mockPlatform, s.flags,
		WithProvisioner(s.mockProfiles),
		WithProvisionQueue(1),
		WithMetrics(s.metrics),
	)
	user := newUser("google", "jane@example.com")

	// Worker not started, so the single slot fills up.
	svc.enqueueProvision(s.ctx, user)
	svc.enqueueProvision(s.ctx, user)

	s.Len(svc.jobs, 1)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.ProvisionDropped))
}
