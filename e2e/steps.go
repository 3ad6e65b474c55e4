package e2e

import (
	"github.com/cucumber/godog"

	"nightout/e2e/steps/auth"
	"nightout/e2e/steps/common"
	"nightout/e2e/steps/outing"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	outing.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
}
