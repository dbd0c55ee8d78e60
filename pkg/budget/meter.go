package budget

import (
	"context"
	"log/slog"
)

// Meter reads and records token usage through a Store under a Policy.
type Meter struct {
	store  Store
	policy *Policy
	logger *slog.Logger
}

// NewMeter creates a Meter.
func NewMeter(store Store, policy *Policy, logger *slog.Logger) *Meter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meter{store: store, policy: policy, logger: logger}
}

// Policy returns the policy the meter enforces.
func (m *Meter) Policy() *Policy {
	return m.policy
}

// Used returns today's usage for group ("" is global).
func (m *Meter) Used(ctx context.Context, group string) (int64, error) {
	return m.store.Get(ctx, m.policy.Key(group))
}

// Exhausted reports whether group ("" is global) has reached its cap
// today. A group without its own limit is held to the global cap.
func (m *Meter) Exhausted(ctx context.Context, group string) (bool, error) {
	used, err := m.Used(ctx, group)
	if err != nil {
		return false, err
	}
	limit := m.policy.LimitFor(group)
	m.logger.DebugContext(ctx, "tpd status", "event", "budget.status",
		"scope", scopeName(group), "used", used, "limit", limit)
	return used >= limit, nil
}

// Record adds tokens spent by model to the global counter and, when the
// model belongs to a cap group, to the group counter.
func (m *Meter) Record(ctx context.Context, model string, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	if _, err := m.store.IncrBy(ctx, m.policy.Key(""), tokens, m.policy.CounterTTL); err != nil {
		return err
	}
	if group := CapGroupForModel(model); group != "" {
		if _, err := m.store.IncrBy(ctx, m.policy.Key(group), tokens, m.policy.CounterTTL); err != nil {
			return err
		}
	}
	return nil
}

func scopeName(group string) string {
	if group == "" {
		return "global"
	}
	return group
}
