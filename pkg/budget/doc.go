// Package budget meters daily token spend against per-day caps.
//
// Counters live in a Store keyed by day (tpd:openai:<date> for the global
// count, tpd:openai:group:<group>:<date> per cap group). Days are computed
// in a fixed timezone offset so the cap resets at local midnight. The
// Policy decides which names are metered, which cap group a model belongs
// to, and where an exhausted entrypoint is rerouted.
package budget
