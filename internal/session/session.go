// Package session exposes the authenticated gateway session as a
// read-only capability. Components that need to know who is logged in
// receive a Provider; none of them can mutate session state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dfslink/dfslink/internal/models"
)

// Prober performs a session-status probe. *api.Client satisfies this.
type Prober interface {
	SessionStatus(ctx context.Context) (*models.SessionStatus, error)
}

// Provider is the read-only session view handed to consumers.
type Provider interface {
	Status(ctx context.Context) (models.SessionStatus, error)
}

// CachedProvider wraps a Prober with a short-lived cache so repeated
// reads within one command do not re-hit the gateway.
type CachedProvider struct {
	prober Prober
	ttl    time.Duration

	mu        sync.RWMutex
	status    models.SessionStatus
	fetchedAt time.Time
}

const defaultTTL = 30 * time.Second

// NewProvider creates a provider over prober with the default cache TTL.
func NewProvider(prober Prober) *CachedProvider {
	return &CachedProvider{prober: prober, ttl: defaultTTL}
}

// Status returns the session status, probing the gateway when the cached
// value is stale. A probe failure is returned and not cached.
func (p *CachedProvider) Status(ctx context.Context) (models.SessionStatus, error) {
	p.mu.RLock()
	if !p.fetchedAt.IsZero() && time.Since(p.fetchedAt) < p.ttl {
		status := p.status
		p.mu.RUnlock()
		return status, nil
	}
	p.mu.RUnlock()

	status, err := p.prober.SessionStatus(ctx)
	if err != nil {
		return models.SessionStatus{}, err
	}

	p.mu.Lock()
	p.status = *status
	p.fetchedAt = time.Now()
	p.mu.Unlock()
	return *status, nil
}

// Invalidate drops the cached status so the next read probes again.
func (p *CachedProvider) Invalidate() {
	p.mu.Lock()
	p.fetchedAt = time.Time{}
	p.mu.Unlock()
}
