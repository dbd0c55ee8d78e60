package prompts

import (
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// JSONOnlyInstruction is prepended to probe conversations that ask for JSON
// but never say so.
const JSONOnlyInstruction = "Reply with a JSON object (JSON only)."

// ProbeMessages is the conversation a probe sends when the caller supplies none.
func ProbeMessages() []types.Message {
	return []types.Message{
		nlp.NewSystemMessage("You are an information extraction engine. Output JSON only (or a short text if you cannot)."),
		nlp.NewUserMessage("Bob joined Acme in 2022 as an engineer; Acme is headquartered in Taipei."),
	}
}
