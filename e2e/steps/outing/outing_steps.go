package outing

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers outing tracker step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &outingSteps{tc: tc}

	ctx.Step(`^an outing has been started$`, steps.startOuting)
	ctx.Step(`^I set the (group-total|venues|squad|drinks) to (-?[\d.]+)$`, steps.setValue)
	ctx.Step(`^"([^"]*)" logs (-?\d+) "([^"]*)"$`, steps.logDrinks)
}

type outingSteps struct {
	tc TestContext
}

func (s *outingSteps) startOuting(ctx context.Context) error {
	if err := s.tc.Do("POST", "/outing/start", nil); err != nil {
		return err
	}
	return s.expect(201)
}

func (s *outingSteps) setValue(ctx context.Context, field string, value float64) error {
	return s.tc.Do("PUT", "/outing/"+field, map[string]float64{"value": value})
}

func (s *outingSteps) logDrinks(ctx context.Context, participant string, delta int, drink string) error {
	return s.tc.Do("POST", "/outing/tally", map[string]any{
		"participant": participant,
		"drink":       drink,
		"delta":       delta,
	})
}

func (s *outingSteps) expect(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", status, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}
