package budget

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
)

const (
	// DefaultDailyLimit is the daily token cap when none is configured.
	DefaultDailyLimit int64 = 10_000_000
	// DefaultCounterTTL keeps a day counter around past the end of its day.
	DefaultCounterTTL = 36 * time.Hour
	// DefaultMaxHops bounds the reroute chain of one request.
	DefaultMaxHops = 3

	// DefaultGraphReroute receives exhausted graph traffic.
	DefaultGraphReroute = "graph-extractor-gemini"
	// DefaultChatReroute receives exhausted answer traffic.
	DefaultChatReroute = "rag-answer-gemini"

	// ProAnswerEntrypoint is the answer entrypoint backed by the full model.
	ProAnswerEntrypoint = "rag-answer-pro"

	// GraphEntrypointPrefix marks entrypoints that produce graph JSON.
	GraphEntrypointPrefix = "graph-extractor"

	// Cap groups of the metered model families.
	GroupGPT5     = "openai.gpt-5"
	GroupGPT5Mini = "openai.gpt-5-mini"
)

var (
	meteredEntrypoints = []string{"rag-answer", "rag-answer-pro", "graph-extractor"}

	rerouteMap = map[string]string{
		"rag-answer":             "rag-answer-gemini",
		"rag-answer-pro":         "rag-answer",
		"graph-extractor":        "graph-extractor-gemini",
		"graph-extractor-o1mini": "graph-extractor-gemini",
	}

	openAINamePrefixes = []string{
		"openai/", "gpt-", "o1-", "o3-", "o4-", "text-embedding-", "whisper-", "tts-",
	}
	openAINameExact = []string{
		"gpt-5-mini-2025-08-07",
		"gpt-5-2025-08-07",
		"gpt-5.1",
		"gpt-5.1-2025-11-13",
		"gpt-4.1-mini-2025-04-14",
		"o1-mini-2024-09-12",
	}
)

// IsOpenAIModelName reports whether name is a concrete OpenAI model.
func IsOpenAIModelName(name string) bool {
	if name == "" {
		return false
	}
	n := strings.ToLower(name)
	if slices.Contains(openAINameExact, n) {
		return true
	}
	for _, p := range openAINamePrefixes {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	return false
}

// IsMeteredEntrypoint reports whether name is an entrypoint backed by a
// metered model.
func IsMeteredEntrypoint(name string) bool {
	if name == "" {
		return false
	}
	return slices.Contains(meteredEntrypoints, name) || strings.HasPrefix(name, GraphEntrypointPrefix)
}

// IsGraphEntrypoint reports whether name is a graph extraction entrypoint.
func IsGraphEntrypoint(name string) bool {
	return strings.HasPrefix(name, GraphEntrypointPrefix)
}

// RerouteTarget returns where traffic for an exhausted entrypoint goes.
func RerouteTarget(name string) string {
	if target, ok := rerouteMap[name]; ok {
		return target
	}
	if IsGraphEntrypoint(name) {
		return DefaultGraphReroute
	}
	return DefaultChatReroute
}

// CapGroupForModel maps a concrete model name to its cap group, or "" when
// the model is not in a capped family. The mini family is matched first.
func CapGroupForModel(name string) string {
	n := strings.ToLower(name)
	n = strings.TrimPrefix(n, "openai/")
	switch {
	case n == "gpt-5-mini" || strings.HasPrefix(n, "gpt-5-mini-"):
		return GroupGPT5Mini
	case n == "gpt-5" || strings.HasPrefix(n, "gpt-5-") || strings.HasPrefix(n, "gpt-5."):
		return GroupGPT5
	default:
		return ""
	}
}

// CapGroupForRequest infers the cap group from a requested alias or model
// name before any routing happens.
func CapGroupForRequest(name string) string {
	switch strings.ToLower(name) {
	case "rag-answer":
		return GroupGPT5Mini
	case "rag-answer-pro":
		return GroupGPT5
	}
	return CapGroupForModel(name)
}

// Policy holds the limits and day arithmetic of the daily caps.
type Policy struct {
	DailyLimit  int64
	GroupLimits map[string]int64
	TZOffset    time.Duration
	CounterTTL  time.Duration
	MaxHops     int
	// RerouteReal allows rerouting requests that name a real OpenAI model.
	// When false such requests are refused once the cap is hit.
	RerouteReal bool

	now func() time.Time
}

// NewPolicy builds a Policy from configuration. Group limit keys are
// matched after sanitization, so "openai.gpt-5" and "OPENAI_GPT_5" name
// the same group.
func NewPolicy(cfg config.BudgetConfig) *Policy {
	p := &Policy{
		DailyLimit:  cfg.DailyLimit,
		GroupLimits: make(map[string]int64, len(cfg.GroupLimits)),
		TZOffset:    time.Duration(cfg.TZOffsetHours) * time.Hour,
		CounterTTL:  cfg.CounterTTL,
		MaxHops:     DefaultMaxHops,
		RerouteReal: cfg.RerouteReal,
		now:         time.Now,
	}
	if p.DailyLimit <= 0 {
		p.DailyLimit = DefaultDailyLimit
	}
	if p.CounterTTL <= 0 {
		p.CounterTTL = DefaultCounterTTL
	}
	for group, limit := range cfg.GroupLimits {
		p.GroupLimits[SanitizeGroup(group)] = limit
	}
	return p
}

// SanitizeGroup maps a group name to its environment form: every
// non-alphanumeric character becomes '_', then upper case.
func SanitizeGroup(group string) string {
	var b strings.Builder
	for _, r := range group {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.ToUpper(b.String())
}

// LimitFor returns the cap of group, falling back to the global cap.
func (p *Policy) LimitFor(group string) int64 {
	if group != "" {
		if limit, ok := p.GroupLimits[SanitizeGroup(group)]; ok {
			return limit
		}
	}
	return p.DailyLimit
}

// Day returns the cap day of t as YYYY-MM-DD.
func (p *Policy) Day(t time.Time) string {
	return t.UTC().Add(p.TZOffset).Format("2006-01-02")
}

// Key returns today's counter key for group; "" is the global counter.
func (p *Policy) Key(group string) string {
	day := p.Day(p.now())
	if group == "" {
		return fmt.Sprintf("tpd:openai:%s", day)
	}
	return fmt.Sprintf("tpd:openai:group:%s:%s", group, day)
}
