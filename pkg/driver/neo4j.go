package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

const (
	nodeUpsertQuery = "MERGE (x:Entity:`%s` {id: $id})\n" +
		"ON CREATE SET x.created_at = timestamp()\n" +
		"SET x.updated_at = timestamp(), x.type = $type, x.props_json = $props"

	edgeUpsertQuery = "MATCH (a {id: $src})\n" +
		"MATCH (b {id: $dst})\n" +
		"MERGE (a)-[r:`%s`]->(b)\n" +
		"ON CREATE SET r.created_at = timestamp()\n" +
		"SET r.updated_at = timestamp(), r.type = $type, r.props_json = $props"
)

// Neo4jStore implements GraphStore for Neo4j.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore creates a store from the database section. It does not
// connect; call VerifyConnectivity to check reachability.
func NewNeo4jStore(cfg config.DatabaseConfig, logger *slog.Logger) (*Neo4jStore, error) {
	if cfg.URI == "" {
		return nil, ErrNotConfigured
	}
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: client, database: database, logger: logger}, nil
}

// UpsertGraph writes g in one transaction. Edges whose endpoints do not
// exist are skipped by the MATCH and still counted, like every edge sent.
func (s *Neo4jStore) UpsertGraph(ctx context.Context, g *types.Graph) (*UpsertResult, error) {
	if g == nil {
		g = types.NewGraph()
	}
	statements, err := upsertStatements(g)
	if err != nil {
		return nil, err
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range statements {
			if _, err := tx.Run(ctx, st.query, st.params); err != nil {
				return nil, fmt.Errorf("failed to upsert %s: %w", st.what, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	res := &UpsertResult{Nodes: len(g.Nodes), Edges: len(g.Edges)}
	s.logger.InfoContext(ctx, "graph upsert committed", "event", "graph.upsert", "nodes", res.Nodes, "edges", res.Edges)
	return res, nil
}

// Query runs cypher in a read transaction after the read-only check.
func (s *Neo4jStore) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if err := CheckReadOnly(cypher); err != nil {
		return nil, err
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, RecordValues(rec.AsMap()))
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return out.([]map[string]any), nil
}

// VerifyConnectivity implements GraphStore.
func (s *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	return s.client.VerifyConnectivity(ctx)
}

// Close implements GraphStore.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

type statement struct {
	what   string
	query  string
	params map[string]any
}

// upsertStatements renders the Cypher for g: all nodes first, then edges.
func upsertStatements(g *types.Graph) ([]statement, error) {
	out := make([]statement, 0, len(g.Nodes)+len(g.Edges))
	for _, n := range g.Nodes {
		props, err := propsJSON(n.Props)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		out = append(out, statement{
			what:  "node " + n.ID,
			query: fmt.Sprintf(nodeUpsertQuery, SanitizeLabel(n.Type, "Entity")),
			params: map[string]any{
				"id":    n.ID,
				"type":  n.Type,
				"props": props,
			},
		})
	}
	for _, e := range g.Edges {
		props, err := propsJSON(e.Props)
		if err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.Src, e.Dst, err)
		}
		out = append(out, statement{
			what:  fmt.Sprintf("edge %s-[%s]->%s", e.Src, e.Type, e.Dst),
			query: fmt.Sprintf(edgeUpsertQuery, SanitizeLabel(e.Type, types.DefaultEdgeType)),
			params: map[string]any{
				"src":   e.Src,
				"dst":   e.Dst,
				"type":  e.Type,
				"props": props,
			},
		})
	}
	return out, nil
}

// propsJSON encodes a property list without escaping non-ASCII or HTML.
func propsJSON(props []types.KV) (string, error) {
	if props == nil {
		props = []types.KV{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(props); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
