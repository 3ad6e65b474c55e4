// Package onboarding keeps the first-run flags that decide whether the intro and
// setup screens are shown.
package onboarding

import (
	"context"
	"errors"
	"fmt"

	"nightout/internal/sentinel"
	"nightout/internal/storage/kv"
)

// Keys shared with sign-out, which removes both.
const (
	KeyOnboardingSeen = "onboardingSeen"
	KeySetupCompleted = "setupCompleted"
)

const flagSet = "true"

// SignOutKeys lists the flags forgotten when a user signs out.
func SignOutKeys() []string {
	return []string{KeyOnboardingSeen, KeySetupCompleted}
}

// Status reports which first-run steps have been completed.
type Status struct {
	OnboardingSeen bool `json:"onboarding_seen"`
	SetupCompleted bool `json:"setup_completed"`
}

// Flags reads and writes the first-run flags.
type Flags struct {
	store kv.Store
}

func New(store kv.Store) *Flags {
	return &Flags{store: store}
}

func (f *Flags) MarkOnboardingSeen(ctx context.Context) error {
	return f.set(ctx, KeyOnboardingSeen)
}

func (f *Flags) MarkSetupCompleted(ctx context.Context) error {
	return f.set(ctx, KeySetupCompleted)
}

func (f *Flags) Status(ctx context.Context) (Status, error) {
	seen, err := f.get(ctx, KeyOnboardingSeen)
	if err != nil {
		return Status{}, err
	}
	completed, err := f.get(ctx, KeySetupCompleted)
	if err != nil {
		return Status{}, err
	}
	return Status{OnboardingSeen: seen, SetupCompleted: completed}, nil
}

func (f *Flags) set(ctx context.Context, key string) error {
	if err := f.store.Set(ctx, key, flagSet); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// get treats any value other than "true" as unset.
func (f *Flags) get(ctx context.Context, key string) (bool, error) {
	v, err := f.store.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return v == flagSet, nil
}
