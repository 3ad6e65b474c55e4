package tally

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nightout/pkg/domain-errors"
)

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	tl := New(nil)

	p, err := tl.Adjust(ctx, "alex", "beer", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Drinks["beer"])
	assert.Equal(t, 13.0, p.Spent)

	p, err = tl.Adjust(ctx, "alex", "wine", 1)
	require.NoError(t, err)
	assert.Equal(t, 21.0, p.Spent)
	assert.Equal(t, 3, p.Count())

	p, err = tl.Adjust(ctx, "alex", "beer", -1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Drinks["beer"])
	assert.Equal(t, 14.5, p.Spent)
}

func TestAdjustClampsAtZero(t *testing.T) {
	ctx := context.Background()
	tl := New(nil)
	_, err := tl.Adjust(ctx, "sam", "cocktail", 1)
	require.NoError(t, err)

	p, err := tl.Adjust(ctx, "sam", "cocktail", -5)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Drinks["cocktail"])
	assert.Zero(t, p.Spent)

	p, err = tl.Adjust(ctx, "sam", "shot", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Drinks["shot"])
	assert.Zero(t, p.Spent)
}

func TestAdjustRejectsUnknownInput(t *testing.T) {
	ctx := context.Background()
	tl := New(Menu{"beer": 5})

	_, err := tl.Adjust(ctx, "alex", "cocktail", 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = tl.Adjust(ctx, "  ", "beer", 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Zero(t, tl.SquadSize())
}

func TestAdjustEnforcesLimits(t *testing.T) {
	ctx := context.Background()
	tl := New(nil)

	_, err := tl.Adjust(ctx, strings.Repeat("x", 65), "beer", 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = tl.Adjust(ctx, "alex", "beer", 101)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	for i := range 50 {
		_, err := tl.Adjust(ctx, fmt.Sprintf("p%02d", i), "shot", 1)
		require.NoError(t, err)
	}
	_, err = tl.Adjust(ctx, "one-too-many", "shot", 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, 50, tl.SquadSize())

	_, err = tl.Adjust(ctx, "p00", "shot", 1)
	assert.NoError(t, err)
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	tl := New(nil)
	_, _ = tl.Adjust(ctx, "alex", "beer", 2)
	_, _ = tl.Adjust(ctx, "alex", "wine", 1)
	_, _ = tl.Adjust(ctx, "sam", "beer", 1)
	_, _ = tl.Adjust(ctx, "sam", "cocktail", 2)

	assert.Equal(t, 2, tl.SquadSize())
	assert.Equal(t, 6, tl.TotalDrinks())
	assert.Equal(t, 51.5, tl.GroupTotal())

	ps := tl.Participants()
	require.Len(t, ps, 2)
	assert.Equal(t, "alex", ps[0].ID)
	ps[0].Drinks["beer"] = 100
	assert.Equal(t, 6, tl.TotalDrinks())

	require.NoError(t, tl.Remove(ctx, "sam"))
	assert.Equal(t, 1, tl.SquadSize())
	require.NoError(t, tl.Reset(ctx))
	assert.Zero(t, tl.GroupTotal())
}

type recordingUpdater struct {
	total  float64
	drinks int
	squad  int
	err    error
}

func (r *recordingUpdater) UpdateGroupTotal(_ context.Context, total float64) error {
	r.total = total
	return r.err
}

func (r *recordingUpdater) UpdateTotalDrinks(_ context.Context, count int) error {
	r.drinks = count
	return nil
}

func (r *recordingUpdater) UpdateSquadSize(_ context.Context, size int) error {
	r.squad = size
	return nil
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	tl := New(nil)
	_, _ = tl.Adjust(ctx, "alex", "shot", 3)
	_, _ = tl.Adjust(ctx, "sam", "mixed_drink", 1)

	u := &recordingUpdater{}
	require.NoError(t, tl.Sync(ctx, u))
	assert.Equal(t, 25.0, u.total)
	assert.Equal(t, 4, u.drinks)
	assert.Equal(t, 2, u.squad)

	failing := &recordingUpdater{err: errors.New("store down")}
	require.Error(t, tl.Sync(ctx, failing))
	assert.Zero(t, failing.drinks)
}
