package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

var (
	// ErrNotConfigured is returned when no graph database is configured.
	ErrNotConfigured = errors.New("graph store not configured")
	// ErrEmptyQuery is returned for a blank Cypher query.
	ErrEmptyQuery = errors.New("query is required")
)

// ErrUnsafeQuery is returned when a query contains a write or admin clause.
type ErrUnsafeQuery struct {
	Token string
}

func (e *ErrUnsafeQuery) Error() string {
	return fmt.Sprintf("write_or_unsafe_query_not_allowed: %q", strings.TrimSpace(e.Token))
}

// UpsertResult counts what an upsert wrote.
type UpsertResult struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// GraphStore persists graphs and answers read-only queries.
type GraphStore interface {
	// UpsertGraph merges every node and edge of g.
	UpsertGraph(ctx context.Context, g *types.Graph) (*UpsertResult, error)
	// Query runs a read-only Cypher query and returns one map per record.
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	// VerifyConnectivity checks that the database is reachable.
	VerifyConnectivity(ctx context.Context) error
	// Close releases the connection pool.
	Close(ctx context.Context) error
}

// unsafeTokens are rejected anywhere in a query, case-insensitively.
var unsafeTokens = []string{"delete ", "remove ", "drop ", "create ", "set ", "merge ", "load ", "call db."}

// CheckReadOnly rejects blank queries and queries that could write.
func CheckReadOnly(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return ErrEmptyQuery
	}
	lowered := strings.ToLower(q)
	for _, tok := range unsafeTokens {
		if strings.Contains(lowered, tok) {
			return &ErrUnsafeQuery{Token: tok}
		}
	}
	return nil
}

// SanitizeLabel reduces s to a Cypher label or relationship type made of
// [A-Za-z0-9_]. An empty result becomes fallback.
func SanitizeLabel(s, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
