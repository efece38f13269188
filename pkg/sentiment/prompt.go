package sentiment

import "strings"

// DefaultPromptTemplate is the oracle prompt. {{CITY}} and {{TITLE}} are replaced per call.
const DefaultPromptTemplate = `You are rating sentiment towards urban conditions in {{CITY}}.
Assess the tone of this headline/post. Give a single floating-point score between -1 (very unfavourable) and 1 (very favourable), then one short sentence explaining the main signal.
Title: "{{TITLE}}"
Respond exactly in this format:
Score: <-1 to 1>
Reason: <one sentence>`

// RenderPrompt fills the template for one request.
func RenderPrompt(template string, req Request) string {
	if template == "" {
		template = DefaultPromptTemplate
	}
	r := strings.NewReplacer("{{CITY}}", req.Subject, "{{TITLE}}", req.Text)
	return r.Replace(template)
}
