package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/alert"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// CircuitBreakerClient wraps a Client with one circuit breaker per provider
// id, so a failing provider is skipped quickly without affecting the others.
type CircuitBreakerClient struct {
	client  Client
	cfg     config.CircuitBreakerConfig
	alerter alert.Alerter
	logger  *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewCircuitBreakerClient creates a new circuit breaker client. When cfg is
// disabled calls pass straight through.
func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *CircuitBreakerClient {
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreakerClient{
		client:   client,
		cfg:      cfg,
		alerter:  alerter,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *CircuitBreakerClient) breaker(name string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[name]; ok {
		return cb
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: c.cfg.MaxRequests,
		Interval:    time.Duration(c.cfg.Interval) * time.Second,
		Timeout:     time.Duration(c.cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= c.cfg.ReadyToTripRatio
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				"event", "llm.circuit", "provider", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit breaker '%s' changed from %s to %s. Too many failures detected.", name, from, to)
				if err := c.alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					c.logger.Error("alert failed", "error", err)
				}
			}
		},
	}

	cb := gobreaker.NewCircuitBreaker(st)
	c.breakers[name] = cb
	return cb
}

// State returns the breaker state of a provider id.
func (c *CircuitBreakerClient) State(name string) gobreaker.State {
	return c.breaker(name).State()
}

// Chat implements Client
func (c *CircuitBreakerClient) Chat(ctx context.Context, req *types.ChatRequest) (*types.Response, error) {
	if !c.cfg.Enabled {
		return c.client.Chat(ctx, req)
	}

	resp, err := c.breaker(req.Model).Execute(func() (interface{}, error) {
		return c.client.Chat(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider %s unavailable: %w", req.Model, err)
		}
		return nil, err
	}
	return resp.(*types.Response), nil
}

// Close implements Client
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping the
// breaker of a healthy provider.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError
	}
	return false
}
