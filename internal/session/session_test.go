package session

import (
	"context"
	"errors"
	"testing"

	"github.com/dfslink/dfslink/internal/models"
)

type fakeProber struct {
	status models.SessionStatus
	err    error
	probes int
}

func (f *fakeProber) SessionStatus(ctx context.Context) (*models.SessionStatus, error) {
	f.probes++
	if f.err != nil {
		return nil, f.err
	}
	s := f.status
	return &s, nil
}

func TestStatusCachesWithinTTL(t *testing.T) {
	prober := &fakeProber{status: models.SessionStatus{Success: true, User: "alice"}}
	p := NewProvider(prober)

	for i := 0; i < 3; i++ {
		status, err := p.Status(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if status.User != "alice" {
			t.Errorf("user = %q, want alice", status.User)
		}
	}
	if prober.probes != 1 {
		t.Errorf("probes = %d, want 1 (cached)", prober.probes)
	}
}

func TestStatusErrorNotCached(t *testing.T) {
	prober := &fakeProber{err: errors.New("connection refused")}
	p := NewProvider(prober)

	if _, err := p.Status(context.Background()); err == nil {
		t.Fatal("want probe error")
	}

	prober.err = nil
	prober.status = models.SessionStatus{Success: true, User: "bob"}
	status, err := p.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.User != "bob" {
		t.Errorf("user = %q, want bob (failure must not be cached)", status.User)
	}
}

func TestInvalidateForcesReprobe(t *testing.T) {
	prober := &fakeProber{status: models.SessionStatus{Success: true}}
	p := NewProvider(prober)

	p.Status(context.Background())
	p.Invalidate()
	p.Status(context.Background())

	if prober.probes != 2 {
		t.Errorf("probes = %d, want 2", prober.probes)
	}
}
