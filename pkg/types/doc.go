// Package types defines the core data types shared across the gateway.
//
// This package contains:
//   - Graph, Node, Edge and KV: the canonical extraction result
//   - Message, ChatRequest, ResponseFormat and Response: one call to an LLM provider
//   - Context keys for request-scoped values (request id, client ip, tenant)
//
// # JSON Serialization
//
// Graph types always serialize their sequences as JSON arrays, never null,
// so a normalized graph can be handed to a JSON Schema validator or an HTTP
// client without further massaging:
//
//	g := &types.Graph{}
//	b, _ := json.Marshal(g) // {"nodes":[],"edges":[]}
package types
