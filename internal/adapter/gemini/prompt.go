package gemini

import (
	"encoding/json"
	"strings"

	"github.com/user/scraper-service/internal/entity"
)

// buildPrompt renders the deterministic extraction prompt: exact field
// keys, the extraction guidelines, and the strict JSON shape the response
// must take.
func buildPrompt(pageURL string, page *entity.PageContent, fields []string) string {
	var fieldLines strings.Builder
	for _, f := range fields {
		fieldLines.WriteString("- ")
		fieldLines.WriteString(f)
		fieldLines.WriteString(": Extract information for this field\n")
	}

	template := make(map[string]string, len(fields))
	for _, f := range fields {
		template[f] = "..."
	}
	templateJSON, _ := json.MarshalIndent(template, "", "  ")

	var b strings.Builder
	b.WriteString("You are a data extraction expert. Extract information from this website and return ONLY valid JSON.\n\n")
	b.WriteString("Website URL: ")
	b.WriteString(pageURL)
	b.WriteString("\nPage Title: ")
	b.WriteString(page.Title)
	b.WriteString("\n\nWebsite Content:\n")
	if page.MetaDescription != "" {
		b.WriteString(page.MetaDescription)
		b.WriteString("\n")
	}
	b.WriteString(page.Text)
	b.WriteString("\n\nExtract the following information and return as JSON with these EXACT keys:\n")
	b.WriteString(fieldLines.String())
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Extract accurate information from the content\n")
	b.WriteString("- If information is not found, use \"N/A\"\n")
	b.WriteString("- Be concise but informative\n")
	b.WriteString("- For availability or yes/no questions: answer \"Yes\", \"No\", or \"Unknown\"\n")
	b.WriteString("\nReturn ONLY this JSON format:\n")
	b.Write(templateJSON)
	b.WriteString("\n\nDo not include any explanations, only the JSON object.")
	return b.String()
}
