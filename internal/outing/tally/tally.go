// Package tally counts drinks per participant and derives the outing totals from them.
package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
	"nightout/pkg/platform/validation"
)

// Menu maps a drink id to its unit price.
type Menu map[string]float64

// DefaultMenu returns the stock prices offered during setup.
func DefaultMenu() Menu {
	return Menu{
		"beer":        6.50,
		"wine":        8.00,
		"cocktail":    12.00,
		"shot":        5.00,
		"mixed_drink": 10.00,
	}
}

func (m Menu) clone() Menu {
	out := make(Menu, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate checks that m lists at least one drink, within the menu limits,
// and that every price is a finite non-negative amount.
func (m Menu) Validate() error {
	if len(m) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "menu must list at least one drink")
	}
	if err := validation.CheckSliceCount("drinks", len(m), validation.MaxMenuItems); err != nil {
		return err
	}
	for id, price := range m {
		if strings.TrimSpace(id) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "drink id is required")
		}
		if err := validation.CheckStringLength("drink id", id, validation.MaxDrinkIDLength); err != nil {
			return err
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("price of %s must be a non-negative amount", id))
		}
	}
	return nil
}

// Participant is one member of the squad and what they have ordered.
type Participant struct {
	ID     string         `json:"id"`
	Drinks map[string]int `json:"drinks"`
	Spent  float64        `json:"spent"`
}

// Count returns the participant's drinks across every type.
func (p Participant) Count() int {
	n := 0
	for _, c := range p.Drinks {
		n += c
	}
	return n
}

func (p Participant) clone() Participant {
	out := p
	out.Drinks = make(map[string]int, len(p.Drinks))
	for k, v := range p.Drinks {
		out.Drinks[k] = v
	}
	return out
}

// StatisticsUpdater receives the derived totals.
type StatisticsUpdater interface {
	UpdateGroupTotal(ctx context.Context, total float64) error
	UpdateTotalDrinks(ctx context.Context, count int) error
	UpdateSquadSize(ctx context.Context, size int) error
}

// Tally is safe for concurrent use. A tally opened over a Store saves every
// change before applying it, so memory never runs ahead of storage.
type Tally struct {
	mu           sync.Mutex
	menu         Menu
	participants map[string]*Participant

	store            *Store
	logger           *slog.Logger
	discardMalformed bool
}

type Option func(*Tally)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tally) {
		t.logger = logger
	}
}

// WithDiscardMalformed makes Open drop saved documents that cannot be decoded
// instead of failing.
func WithDiscardMalformed(discard bool) Option {
	return func(t *Tally) {
		t.discardMalformed = discard
	}
}

// New builds an empty in-memory tally priced from menu. A nil menu uses DefaultMenu.
func New(menu Menu) *Tally {
	if menu == nil {
		menu = DefaultMenu()
	}
	return &Tally{
		menu:         menu.clone(),
		participants: make(map[string]*Participant),
		logger:       slog.Default(),
	}
}

// Open restores the price list and participants saved in store. Without a
// saved price list the tally uses DefaultMenu.
func Open(ctx context.Context, store *Store, opts ...Option) (*Tally, error) {
	t := New(nil)
	t.store = store
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}

	menu, err := store.LoadMenu(ctx)
	switch {
	case err == nil:
		if menu != nil {
			t.menu = menu
		}
	case errors.Is(err, sentinel.ErrInvalidInput) && t.discardMalformed:
		t.logger.WarnContext(ctx, "discarding malformed drink prices", "error", err)
	case errors.Is(err, sentinel.ErrInvalidInput):
		return nil, dErrors.Wrap(err, dErrors.CodeCorruptState, "persisted drink prices are malformed")
	default:
		return nil, translateStoreError(err, "failed to load drink prices")
	}

	ps, err := store.LoadParticipants(ctx)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrInvalidInput) && t.discardMalformed:
		t.logger.WarnContext(ctx, "discarding malformed drink tally", "error", err)
		if err := store.ClearParticipants(ctx); err != nil {
			return nil, translateStoreError(err, "failed to clear malformed drink tally")
		}
	case errors.Is(err, sentinel.ErrInvalidInput):
		return nil, dErrors.Wrap(err, dErrors.CodeCorruptState, "persisted drink tally is malformed")
	default:
		return nil, translateStoreError(err, "failed to load drink tally")
	}
	for _, p := range ps {
		if p.ID == "" {
			continue
		}
		restored := p.clone()
		t.participants[p.ID] = &restored
	}
	return t, nil
}

// Menu returns a copy of the current price list.
func (t *Tally) Menu() Menu {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.menu.clone()
}

// SetMenu replaces the price list. New prices apply to later adjustments;
// what participants already spent is kept.
func (t *Tally) SetMenu(ctx context.Context, menu Menu) error {
	if err := menu.Validate(); err != nil {
		return err
	}
	next := make(Menu, len(menu))
	for id, price := range menu {
		next[strings.TrimSpace(id)] = price
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store != nil {
		if err := t.store.SaveMenu(ctx, next); err != nil {
			return translateStoreError(err, "failed to save drink prices")
		}
	}
	t.menu = next
	return nil
}

// Adjust changes a participant's count of drink by delta. Unknown participants are
// added on first use. Counts never drop below zero and spend only moves by the
// drinks actually added or removed.
func (t *Tally) Adjust(ctx context.Context, participantID, drink string, delta int) (Participant, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return Participant{}, dErrors.New(dErrors.CodeInvalidInput, "participant is required")
	}
	if err := validation.CheckStringLength("participant", participantID, validation.MaxParticipantIDLength); err != nil {
		return Participant{}, err
	}
	if err := validation.CheckMagnitude("delta", delta, validation.MaxDrinkDelta); err != nil {
		return Participant{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	price, ok := t.menu[drink]
	if !ok {
		return Participant{}, dErrors.New(dErrors.CodeInvalidInput, "unknown drink "+drink)
	}

	var next Participant
	if p, ok := t.participants[participantID]; ok {
		next = p.clone()
	} else {
		if err := validation.CheckSliceCount("participants", len(t.participants)+1, validation.MaxParticipants); err != nil {
			return Participant{}, err
		}
		next = Participant{ID: participantID, Drinks: make(map[string]int)}
	}
	current := next.Drinks[drink]
	count := max(0, current+delta)
	applied := count - current
	next.Drinks[drink] = count
	next.Spent = max(0, roundCents(next.Spent+float64(applied)*price))

	if err := t.saveLocked(ctx, &next, ""); err != nil {
		return Participant{}, err
	}
	t.participants[participantID] = &next
	return next.clone(), nil
}

// Remove drops a participant and everything they ordered.
func (t *Tally) Remove(ctx context.Context, participantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.participants[participantID]; !ok {
		return nil
	}
	if err := t.saveLocked(ctx, nil, participantID); err != nil {
		return err
	}
	delete(t.participants, participantID)
	return nil
}

// Reset forgets every participant. The price list is kept.
func (t *Tally) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store != nil {
		if err := t.store.ClearParticipants(ctx); err != nil {
			return translateStoreError(err, "failed to clear drink tally")
		}
	}
	t.participants = make(map[string]*Participant)
	return nil
}

// Participants returns copies ordered by id.
func (t *Tally) Participants() []Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listLocked("", nil)
}

func (t *Tally) GroupTotal() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0.0
	for _, p := range t.participants {
		total += p.Spent
	}
	return roundCents(total)
}

func (t *Tally) TotalDrinks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.participants {
		n += p.Count()
	}
	return n
}

func (t *Tally) SquadSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.participants)
}

// Sync pushes the derived totals into u, stopping at the first rejected update.
func (t *Tally) Sync(ctx context.Context, u StatisticsUpdater) error {
	if err := u.UpdateGroupTotal(ctx, t.GroupTotal()); err != nil {
		return err
	}
	if err := u.UpdateTotalDrinks(ctx, t.TotalDrinks()); err != nil {
		return err
	}
	return u.UpdateSquadSize(ctx, t.SquadSize())
}

// listLocked returns the participants ordered by id, without drop and with
// replace swapped in.
func (t *Tally) listLocked(drop string, replace *Participant) []Participant {
	out := make([]Participant, 0, len(t.participants)+1)
	for id, p := range t.participants {
		if id == drop || (replace != nil && id == replace.ID) {
			continue
		}
		out = append(out, p.clone())
	}
	if replace != nil {
		out = append(out, replace.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Tally) saveLocked(ctx context.Context, replace *Participant, drop string) error {
	if t.store == nil {
		return nil
	}
	if err := t.store.SaveParticipants(ctx, t.listLocked(drop, replace)); err != nil {
		return translateStoreError(err, "failed to save drink tally")
	}
	return nil
}

func translateStoreError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
