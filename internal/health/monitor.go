// Package health polls the gateway's node dashboard and publishes
// snapshots on the event bus.
package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dfslink/dfslink/internal/events"
	"github.com/dfslink/dfslink/internal/logging"
	"github.com/dfslink/dfslink/internal/models"
)

// Checker fetches one node-health snapshot. *api.Client satisfies this.
type Checker interface {
	NodeHealth(ctx context.Context) (map[string]models.NodeHealth, error)
}

// Monitor polls node health on an interval and publishes each snapshot.
type Monitor struct {
	checker  Checker
	bus      *events.EventBus
	logger   *logging.Logger
	interval time.Duration
}

const defaultInterval = 30 * time.Second

// NewMonitor creates a monitor polling every interval; zero means the
// default.
func NewMonitor(checker Checker, bus *events.EventBus, logger *logging.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		checker:  checker,
		bus:      bus,
		logger:   logger,
		interval: interval,
	}
}

// Check fetches a single snapshot and publishes it.
func (m *Monitor) Check(ctx context.Context) (map[string]models.NodeHealth, error) {
	nodes, err := m.checker.NodeHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("node health check: %w", err)
	}

	m.logger.Debug().Int("nodes", len(nodes)).Msg("Node health snapshot")
	m.publish(nodes)
	return nodes, nil
}

// Run polls until ctx is cancelled. Poll failures are logged and the
// loop continues.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	if _, err := m.Check(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Initial health check failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("Health check failed")
			}
		}
	}
}

func (m *Monitor) publish(nodes map[string]models.NodeHealth) {
	if m.bus == nil {
		return
	}
	statuses := make(map[string]string, len(nodes))
	for id, n := range nodes {
		statuses[id] = n.Status
	}
	m.bus.Publish(&events.NodeHealthEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventNodeHealth, Time: time.Now()},
		Nodes:     statuses,
	})
}

// Summarize renders a snapshot as sorted "node: status" lines for
// display.
func Summarize(nodes map[string]models.NodeHealth) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		n := nodes[id]
		line := fmt.Sprintf("%s: %s", id, n.Status)
		if n.Error != "" {
			line += " (" + n.Error + ")"
		}
		lines = append(lines, line)
	}
	return lines
}
