package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"nightout/internal/identity/memory"
	"nightout/internal/sentinel"
	"nightout/pkg/testutil"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	InProcess() *memory.Platform
}

// RegisterSteps registers identity platform step definitions. They drive the
// in-process platform directly and skip when targeting a deployed server.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^"([^"]*)" has signed in with "([^"]*)"$`, steps.signIn)
	ctx.Step(`^the identity platform rejects sign-out$`, steps.failSignOut)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) platform() (*memory.Platform, error) {
	p := s.tc.InProcess()
	if p == nil {
		return nil, godog.ErrSkip
	}
	return p, nil
}

func (s *authSteps) signIn(ctx context.Context, email, provider string) error {
	p, err := s.platform()
	if err != nil {
		return err
	}
	user := testutil.NewUserBuilder().WithEmail(email).WithProvider(provider).Build()
	p.SignIn(testutil.NewSessionBuilder().WithUser(user).Build())
	return nil
}

func (s *authSteps) failSignOut(ctx context.Context) error {
	p, err := s.platform()
	if err != nil {
		return err
	}
	p.FailSignOut(fmt.Errorf("identity platform down: %w", sentinel.ErrUnavailable))
	return nil
}
