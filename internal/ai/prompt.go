package ai

import (
	"fmt"
	"strings"
)

// TemplateCaseSummaryInternal is the template behind INTERNAL_CASE_OVERVIEW
// drafts.
const TemplateCaseSummaryInternal = "case-summary-internal"

// PolicyVersion tags the generation policy a draft was produced under.
const PolicyVersion = "policy-v1"

// PromptTemplate is a named, versioned prompt with {{placeholder}} slots.
type PromptTemplate struct {
	ID      string
	Version int
	Content string
}

var templates = map[string]PromptTemplate{
	TemplateCaseSummaryInternal: {
		ID:      TemplateCaseSummaryInternal,
		Version: 1,
		Content: `You are generating an internal case summary for a regulated case management system.
Write a concise, factual summary. Do not invent details. If something is unknown, say so.

Case:
- ID: {{caseId}}
- Title: {{title}}
- Status: {{status}}
- Last Updated: {{updatedAt}}

Recent Notes (most recent first):
{{notes}}

Recent Events (most recent first):
{{events}}

Output format:
- Summary (2-6 sentences)
- Key facts (bullets)
- Risks/Unknowns (bullets)
`,
	},
}

// ResolveTemplate looks up a template by id.
func ResolveTemplate(id string) (PromptTemplate, error) {
	t, ok := templates[id]
	if !ok {
		return PromptTemplate{}, fmt.Errorf("unknown prompt template: %s", id)
	}
	return t, nil
}

// RenderTemplate substitutes vars into the template's {{placeholder}} slots.
// Unknown placeholders are left untouched.
func RenderTemplate(t PromptTemplate, vars map[string]string) string {
	out := t.Content
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", val)
	}
	return out
}
