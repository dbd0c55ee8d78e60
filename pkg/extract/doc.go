// Package extract turns free text into a knowledge graph by asking a chain
// of language model providers, absorbing their unreliability behind one call.
//
// Each provider gets up to MaxAttempts tries. The first try uses the strict
// prompt and later tries the nudge prompt. A failed try can be escalated to a
// repair call against the same provider. A result is accepted once it clears
// the node and edge thresholds and is not the single error node sentinel.
// Every rejection is recorded, and when the whole chain is spent the caller
// gets an ExhaustedError carrying that trail.
//
// The provider that actually answered is taken from the response, never from
// the request: the client stack may reroute a call to another provider.
package extract
