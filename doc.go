// Package freeroute provides the graph gateway of FreeRoute: reliable graph
// extraction from text across a chain of LLM providers, plus storage and
// read-only querying of the extracted graphs.
//
// # Basic Usage
//
// Build a gateway from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	gw, err := freeroute.New(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gw.Close(ctx)
//
// # Extracting Graphs
//
// Extract runs the provider chain until one attempt yields a graph that
// passes the thresholds, or returns an *extract.ExhaustedError describing
// every attempt:
//
//	res, err := gw.Extract(ctx, &extract.Request{
//		Context:         "Bob joined Acme in 2022 as an engineer.",
//		Strict:          true,
//		RepairIfInvalid: true,
//	})
//
// # Storing and Querying
//
// Upsert merges a graph into the configured graph store; Query runs a
// read-only Cypher statement against it:
//
//	_, err = gw.Upsert(ctx, res.Graph)
//	rows, err := gw.Query(ctx, "MATCH (n:Entity) RETURN n.id AS id", nil)
//
// The gateway works without a graph store; Upsert and Query then return
// driver.ErrNotConfigured.
package freeroute
