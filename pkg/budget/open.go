package budget

import (
	"context"
	"fmt"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
)

// Open creates the store selected by cfg.Store.
func Open(ctx context.Context, cfg config.BudgetConfig) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	case "badger":
		return NewBadgerStore(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown budget store %q", cfg.Store)
	}
}
