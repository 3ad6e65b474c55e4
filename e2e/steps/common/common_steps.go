package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	GetResponseField(field string) (any, error)
	ResponseContains(text string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the night-out service is running$`, steps.serviceIsRunning)

	// Generic request steps
	ctx.Step(`^I (GET|POST|DELETE) "([^"]*)"$`, steps.request)
	ctx.Step(`^I PUT "([^"]*)" with body:$`, steps.putWithBody)
	ctx.Step(`^I POST "([^"]*)" with body:$`, steps.postWithBody)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, steps.responseShouldNotContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.Do("GET", "/health/live", nil); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) request(ctx context.Context, method, path string) error {
	return s.tc.Do(method, path, nil)
}

func (s *commonSteps) putWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.Do("PUT", path, json.RawMessage(body.Content))
}

func (s *commonSteps) postWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.Do("POST", path, json.RawMessage(body.Content))
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, text string) error {
	if !s.tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain: %s\nResponse: %s", text, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldNotContain(ctx context.Context, text string) error {
	if s.tc.ResponseContains(text) {
		return fmt.Errorf("response unexpectedly contains: %s\nResponse: %s", text, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}
