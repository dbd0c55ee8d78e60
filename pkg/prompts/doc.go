// Package prompts holds the prompt text of the graph extraction pipeline:
// the extraction prompt in its strict and nudge modes, the repair prompt,
// and the default probe conversation.
package prompts
