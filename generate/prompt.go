package generate

import (
	"fmt"
	"strings"

	"github.com/geniteam/policyrag/model"
)

const systemPrompt = "You are a highly efficient and concise HR assistant. " +
	"You answer employee questions about HR policies strictly based on the provided policy context, " +
	"the user's grade and the question."

const promptRules = `Instructions:
1. Limit your answer to 2-4 plain sentences. No bullets, numbering or markdown.
2. Answer strictly from the context and the user's grade. If a policy only applies to certain grades, say so. If it does not apply to the user's grade, say so briefly.
3. If the exact term from the question is not in the context, look for related terms (e.g. fuel, petrol, commute -> travel allowance; vacation, PTO -> leave policy).
4. If the context contains long explanations, extract only the parts directly answering the question.
5. Never guess, infer or fabricate. Stick strictly to what is explicitly stated in the context.
6. If no relevant policy appears in the context, reply: "` + FallbackNoPolicy + `"`

// BuildPrompt renders the user prompt for the generator. The template
// branches on the confidence tag: a LOW-confidence context injects the
// composer's uncertainty directive ahead of the rules, so the model
// states "not explicitly specified" instead of inferring by analogy.
func BuildPrompt(req *Request) string {
	var b strings.Builder

	contextText := make([]string, len(req.Context.Chunks))
	for i, chunk := range req.Context.Chunks {
		contextText[i] = chunk.Content
	}

	fmt.Fprintf(&b, "Context:\n%s\n\n", strings.Join(contextText, "\n\n"))

	grade := req.UserGrade
	if grade == "" {
		grade = "Unknown"
	}
	fmt.Fprintf(&b, "User Grade: %s\n\n", grade)
	fmt.Fprintf(&b, "Question: %s\n\n", req.Question)

	if req.Context.Confidence == model.ConfidenceLow && req.Context.Directive != "" {
		fmt.Fprintf(&b, "IMPORTANT: %s\n\n", req.Context.Directive)
	}

	b.WriteString(promptRules)
	return b.String()
}
