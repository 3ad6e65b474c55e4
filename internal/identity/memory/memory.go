// Package memory is an in-process identity platform for development and tests.
package memory

import (
	"context"
	"sync"

	"nightout/internal/auth/models"
	"nightout/internal/identity/hub"
)

// Platform keeps the current session in memory and announces changes on its hub.
type Platform struct {
	hub *hub.Hub

	mu         sync.Mutex
	session    *models.Session
	sessionErr error
	signOutErr error
}

func New() *Platform {
	return &Platform{hub: hub.New()}
}

// Hub exposes the notification hub so relays can publish into it.
func (p *Platform) Hub() *hub.Hub {
	return p.hub
}

func (p *Platform) Subscribe(fn func(models.Notification)) (func(), error) {
	return p.hub.Subscribe(fn)
}

func (p *Platform) GetCurrentSession(ctx context.Context) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	return p.session, nil
}

// SignOut clears the session and emits SIGNED_OUT.
func (p *Platform) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.signOutErr != nil {
		err := p.signOutErr
		p.mu.Unlock()
		return err
	}
	p.session = nil
	p.mu.Unlock()

	p.hub.Publish(models.Notification{Event: models.EventSignedOut})
	return nil
}

// SignIn stores session and emits SIGNED_IN.
func (p *Platform) SignIn(session *models.Session) {
	p.Emit(models.Notification{Event: models.EventSignedIn, Session: session})
}

// Emit records n's session as current and delivers n to subscribers.
func (p *Platform) Emit(n models.Notification) {
	p.mu.Lock()
	p.session = n.Session
	p.mu.Unlock()
	p.hub.Publish(n)
}

// SetSession changes the current session without notifying anyone.
func (p *Platform) SetSession(session *models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = session
}

// FailGetSession makes GetCurrentSession return err until cleared with nil.
func (p *Platform) FailGetSession(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionErr = err
}

// FailSignOut makes SignOut return err until cleared with nil.
func (p *Platform) FailSignOut(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutErr = err
}
