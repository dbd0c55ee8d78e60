package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

const extractSystemBase = `You are an information extraction engine that turns text into knowledge graph data (nodes/edges).
Rules: extract only from the [context], never invent facts; every node and relation carries props as a list of {"key","value"} pairs.
If information is insufficient you may output low-confidence candidates marked with {"key":"low_confidence","value":true}.
You must output at least one relation (for example employment, founding or location).
Output JSON only, strictly conforming to the system schema.`

const (
	strictSuffix = " Never answer with completely empty arrays."
	nudgeSuffix  = " If information is insufficient, output low-confidence candidates marked with low_confidence=true."
)

const extractUserTemplate = `[context]
%s

[task] Extract nodes/edges and add as many props as possible (dates, amounts, places, titles, URLs).
Suggested relation types:
- EMPLOYED_AT: props include role (job title), start_date, location
- FOUNDED_BY: props may include year
- HEADQUARTERED_IN: props may include city
No non-JSON output, no blank strings, no Markdown.`

const repairSystem = "Rewrite the following output as legal JSON that conforms to the schema. Do not change its meaning. Return only the JSON body."

const repairUserTemplate = `[schema]
%s

[llm_output]
%s`

// GraphExtractPrompt groups the prompts of the graph extraction pipeline.
type GraphExtractPrompt interface {
	Extract() PromptVersion
	Repair() PromptVersion
}

// GraphExtractVersions holds all versions of the graph extraction prompts.
type GraphExtractVersions struct {
	ExtractPrompt PromptVersion
	RepairPrompt  PromptVersion
}

func (g *GraphExtractVersions) Extract() PromptVersion { return g.ExtractPrompt }
func (g *GraphExtractVersions) Repair() PromptVersion  { return g.RepairPrompt }

// NewGraphExtractVersions returns the current prompt set.
func NewGraphExtractVersions() *GraphExtractVersions {
	return &GraphExtractVersions{
		ExtractPrompt: NewPromptVersion(extractPrompt),
		RepairPrompt:  NewPromptVersion(repairPrompt),
	}
}

// extractPrompt expects "context" and "mode".
func extractPrompt(vars map[string]any) ([]types.Message, error) {
	text, err := stringVar(vars, "context")
	if err != nil {
		return nil, err
	}
	mode := ModeStrict
	if m, ok := vars["mode"].(Mode); ok {
		mode = m
	}

	sys := extractSystemBase
	switch mode {
	case ModeStrict:
		sys += strictSuffix
	case ModeNudge:
		sys += nudgeSuffix
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", mode)
	}

	return []types.Message{
		nlp.NewSystemMessage(sys),
		nlp.NewUserMessage(fmt.Sprintf(extractUserTemplate, text)),
	}, nil
}

// repairPrompt expects "schema" (json.RawMessage) and "llm_output".
func repairPrompt(vars map[string]any) ([]types.Message, error) {
	output, err := stringVar(vars, "llm_output")
	if err != nil {
		return nil, err
	}
	raw, ok := vars["schema"].(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("prompt variable %q must be a json.RawMessage", "schema")
	}

	var schemaDoc any
	if err := json.Unmarshal(raw, &schemaDoc); err != nil {
		return nil, fmt.Errorf("repair schema: %w", err)
	}
	schemaText, err := ToPromptJSON(schemaDoc, 0)
	if err != nil {
		return nil, err
	}

	return []types.Message{
		nlp.NewSystemMessage(repairSystem),
		nlp.NewUserMessage(fmt.Sprintf(repairUserTemplate, schemaText, output)),
	}, nil
}

// RepairPayload describes a failed attempt for the repair prompt: the error
// the attempt ended with and, when there was one, the raw model output.
func RepairPayload(failure error, raw string) string {
	var b strings.Builder
	if failure != nil {
		b.WriteString("error: ")
		b.WriteString(failure.Error())
	}
	if strings.TrimSpace(raw) != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(raw)
	}
	return b.String()
}
