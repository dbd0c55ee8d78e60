package freeroute

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/driver"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/extract"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// Gateway is the main interface of the graph gateway.
type Gateway interface {
	// Extract turns text into a graph using the provider chain.
	Extract(ctx context.Context, req *extract.Request) (*extract.Result, error)

	// Probe sends one raw call to a provider to check its JSON capability.
	Probe(ctx context.Context, req *ProbeRequest) (*ProbeResult, error)

	// Upsert merges a graph into the graph store.
	Upsert(ctx context.Context, g *types.Graph) (*driver.UpsertResult, error)

	// Query runs a read-only Cypher query.
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// Info describes the running configuration.
	Info() Info

	// Ping checks the graph store.
	Ping(ctx context.Context) error

	// Close releases the provider stack and the graph store.
	Close(ctx context.Context) error
}

// Info is what the gateway reports about itself.
type Info struct {
	Version        string           `json:"app_version"`
	LLMBaseURL     string           `json:"litellm_base"`
	SchemaPath     string           `json:"graph_schema_path"`
	SchemaHash     string           `json:"schema_hash"`
	Defaults       extract.Defaults `json:"graph_defaults"`
	Strategy       string           `json:"strategy"`
	StoreAvailable bool             `json:"graph_store"`
}

// Client is the main implementation of Gateway.
type Client struct {
	llm          nlp.Client
	orchestrator *extract.Orchestrator
	store        driver.GraphStore
	info         Info
	logger       *slog.Logger

	// closers run after the provider stack and the store, in order.
	closers []func() error
}

// NewClient assembles a Client from its parts. store may be nil.
func NewClient(llm nlp.Client, orchestrator *extract.Orchestrator, store driver.GraphStore, info Info, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	info.SchemaHash = orchestrator.SchemaHash()
	info.StoreAvailable = store != nil
	return &Client{
		llm:          llm,
		orchestrator: orchestrator,
		store:        store,
		info:         info,
		logger:       logger,
	}
}

// Extract implements Gateway.
func (c *Client) Extract(ctx context.Context, req *extract.Request) (*extract.Result, error) {
	return c.orchestrator.Extract(ctx, req)
}

// Upsert implements Gateway.
func (c *Client) Upsert(ctx context.Context, g *types.Graph) (*driver.UpsertResult, error) {
	if c.store == nil {
		return nil, driver.ErrNotConfigured
	}
	return c.store.UpsertGraph(ctx, g)
}

// Query implements Gateway. The read-only check runs before the store
// check so unsafe queries are refused even without a store.
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if err := driver.CheckReadOnly(cypher); err != nil {
		return nil, err
	}
	if c.store == nil {
		return nil, driver.ErrNotConfigured
	}
	return c.store.Query(ctx, cypher, params)
}

// Info implements Gateway.
func (c *Client) Info() Info {
	return c.info
}

// Ping implements Gateway.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return driver.ErrNotConfigured
	}
	return c.store.VerifyConnectivity(ctx)
}

// Close implements Gateway.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if err := c.llm.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.store != nil {
		if err := c.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
