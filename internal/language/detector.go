package language

import (
	"context"
	"log"
	"strings"
)

// Generator produces raw text from a prompt. Satisfied by the gemini client.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Detector classifies free-form text into one of the supported storefront
// language codes using the hosted model.
//
// It is deliberately fail-open: a detection failure must never block the
// downstream intent analysis, so every error path returns DefaultCode.
type Detector struct {
	llm Generator
}

func NewDetector(llm Generator) *Detector {
	return &Detector{llm: llm}
}

// Detect returns the supported language code for text, or DefaultCode.
// Single attempt, no retry; never returns an error.
func (d *Detector) Detect(ctx context.Context, text string) string {
	out, err := d.llm.GenerateText(ctx, detectPrompt(text))
	if err != nil {
		log.Printf("language detect failed, falling back to %s: %v", DefaultCode, err)
		return DefaultCode
	}

	code := cleanCode(out)
	if IsSupported(code) {
		return code
	}
	// Unsupported detections collapse to the default storefront language.
	return DefaultCode
}

func detectPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Identify the language of the following text. ")
	b.WriteString("Reply with only the language code, chosen from exactly this set: ")
	b.WriteString(strings.Join(Codes(), ", "))
	b.WriteString(".\n\nText: ")
	b.WriteString(text)
	return b.String()
}

// cleanCode reduces a model reply to the first line, stripped of quotes,
// backticks and surrounding whitespace.
func cleanCode(out string) string {
	line := out
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return strings.Trim(strings.TrimSpace(line), "`'\". ")
}
