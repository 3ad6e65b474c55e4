package service

import (
	"errors"
	"fmt"
	"sync"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"nightout/internal/auth/models"
	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
)

func (s *ServiceSuite) TestNewServiceIsLoading() {
	state := s.service.State()
	s.True(state.Loading)
	s.Nil(state.User)
	s.Nil(state.Session)
}

func (s *ServiceSuite) TestStartResolvesFromInitialSession() {
	user := newUser("email", "jane@example.com")
	session := newSession(user)

	gomock.InOrder(
		s.mockPlatform.EXPECT().Subscribe(gomock.Any()).DoAndReturn(
			func(fn func(models.Notification)) (func(), error) {
				s.notify = fn
				return func() {}, nil
			}),
		s.mockPlatform.EXPECT().GetCurrentSession(gomock.Any()).Return(session, nil),
	)

	s.Require().NoError(s.service.Start(s.ctx))

	state := s.service.State()
	s.False(state.Loading)
	s.Same(session, state.Session)
	s.Same(user, state.User)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Authenticated))
}

func (s *ServiceSuite) TestStartSignedOut() {
	s.startSignedOut()

	state := s.service.State()
	s.False(state.Loading)
	s.False(state.Authenticated())
	s.Nil(state.User)
}

func (s *ServiceSuite) TestLoadingFlipsOnceWhenNotificationArrivesFirst() {
	user := newUser("email", "jane@example.com")
	var states []models.State
	s.service.Subscribe(func(st models.State) { states = append(states, st) })

	s.expectSubscribe()
	s.mockPlatform.EXPECT().GetCurrentSession(gomock.Any()).DoAndReturn(
		func(any) (*models.Session, error) {
			s.notify(models.Notification{Event: models.EventSignedIn, Session: newSession(user)})
			return nil, nil
		})

	s.Require().NoError(s.service.Start(s.ctx))

	s.Require().Len(states, 1)
	s.False(states[0].Loading)
	s.Equal(user.ID, states[0].User.ID)
	s.True(s.service.State().Authenticated(), "stale initial lookup must not sign the user out")
}

func (s *ServiceSuite) TestInitialLookupFailureResolvesSignedOut() {
	s.expectSubscribe()
	s.mockPlatform.EXPECT().GetCurrentSession(gomock.Any()).
		Return(nil, fmt.Errorf("get session: %w", errors.Join(sentinel.ErrUnavailable, errors.New("dial tcp"))))

	err := s.service.Start(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	state := s.service.State()
	s.False(state.Loading)
	s.False(state.Authenticated())
}

func (s *ServiceSuite) TestSubscribeFailureResolvesSignedOut() {
	s.mockPlatform.EXPECT().Subscribe(gomock.Any()).Return(nil, errors.New("no listener"))

	err := s.service.Start(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.False(s.service.State().Loading)
}

func (s *ServiceSuite) TestStartTwiceRejected() {
	s.startSignedOut()
	err := s.service.Start(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestNotificationsReplaceStateInOrder() {
	s.startSignedOut()
	user := newUser("email", "jane@example.com")
	var events []bool
	s.service.Subscribe(func(st models.State) { events = append(events, st.Authenticated()) })

	first := newSession(user)
	refreshed := newSession(user)
	refreshed.AccessToken = "rotated"

	s.notify(models.Notification{Event: models.EventSignedIn, Session: first})
	s.Same(first, s.service.State().Session)

	s.notify(models.Notification{Event: models.EventTokenRefreshed, Session: refreshed})
	s.Equal("rotated", s.service.State().Session.AccessToken)

	s.notify(models.Notification{Event: models.EventSignedOut})
	state := s.service.State()
	s.Nil(state.Session)
	s.Nil(state.User)
	s.False(state.Loading)

	s.Equal([]bool{true, true, false}, events)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Notifications.WithLabelValues("TOKEN_REFRESHED")))
}

func (s *ServiceSuite) TestSessionWithoutUserTreatedAsSignedOut() {
	s.startSignedOut()
	s.notify(models.Notification{Event: models.EventUserUpdated, Session: &models.Session{AccessToken: "x"}})

	state := s.service.State()
	s.Nil(state.Session)
	s.Nil(state.User)
}

func (s *ServiceSuite) TestUnsubscribedListenerStopsReceiving() {
	s.startSignedOut()
	calls := 0
	unsubscribe := s.service.Subscribe(func(models.State) { calls++ })

	s.notify(models.Notification{Event: models.EventSignedOut})
	unsubscribe()
	s.notify(models.Notification{Event: models.EventSignedOut})

	s.Equal(1, calls)
}

func (s *ServiceSuite) TestConcurrentNotificationsKeepUserAndSessionPaired() {
	s.startSignedOut()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.notify(models.Notification{Event: models.EventSignedOut})
				return
			}
			s.notify(models.Notification{Event: models.EventUserUpdated, Session: newSession(newUser("email", "x@example.com"))})
		}(i)
	}
	wg.Wait()

	state := s.service.State()
	s.Equal(state.Session == nil, state.User == nil)
	if state.Session != nil {
		s.Same(state.Session.User, state.User)
	}
}

func (s *ServiceSuite) TestStopUnsubscribesAndClosesResults() {
	s.startSignedOut()

	s.service.Stop()
	s.service.Stop()

	s.Equal(1, s.unsubscribed)
	_, open := <-s.service.Provisioned()
	s.False(open)

	s.notify(models.Notification{Event: models.EventSignedIn, Session: newSession(newUser("google", "a@b.com"))})
	s.False(s.service.State().Authenticated())
}
