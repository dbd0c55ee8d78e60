// Package driver stores extracted graphs in a graph database and runs
// read-only Cypher against it.
//
// Nodes are merged on their id under the Entity label plus a label named
// after their type; edges are merged between existing endpoints as a
// relationship named after their type. Property lists are stored verbatim as
// JSON in props_json, so heterogeneous values survive the round trip.
//
// # Usage
//
//	store, err := driver.NewNeo4jStore(cfg.Database)
//	res, err := store.UpsertGraph(ctx, g)
//	rows, err := store.Query(ctx, "MATCH (n:Entity) RETURN n.id AS id", nil)
//
// # Thread Safety
//
// Neo4jStore is safe for concurrent use. Sessions are opened per call and
// connections are pooled by the underlying driver.
package driver
