package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roshnidevi/bhojan/internal/reliability"
)

// Generator produces raw text from a prompt. Satisfied by the gemini client.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

const (
	maxAttempts = 3
	backoffUnit = 2 * time.Second
)

// Analyzer extracts a structured ordering intent from a customer utterance.
// Stateless apart from the injected model client.
type Analyzer struct {
	llm Generator

	// sleep is swappable so retry timing stays testable.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAnalyzer(llm Generator) *Analyzer {
	return &Analyzer{llm: llm, sleep: sleepCtx}
}

// Analyze runs the utterance through the hosted model and parses the
// structured result. Only rate-limit failures are retried: up to
// maxAttempts total, waiting attempt*2s between tries. Credential and
// parse failures abort immediately with their typed error.
func (a *Analyzer) Analyze(ctx context.Context, text, languageCode string) (Result, error) {
	prompt := buildPrompt(text, languageCode)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := a.llm.GenerateText(ctx, prompt)
		if err != nil {
			if reliability.IsCredentialRejected(err) {
				return Result{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
			}
			if !reliability.IsRateLimited(err) {
				return Result{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
			}
			lastErr = err
			if attempt < maxAttempts {
				if serr := a.sleep(ctx, reliability.LinearBackoff(attempt, backoffUnit)); serr != nil {
					return Result{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, serr)
				}
			}
			continue
		}

		res, perr := parseResult(raw, languageCode)
		if perr != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, perr)
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("%w: %v", ErrQuotaExceeded, lastErr)
}

func buildPrompt(text, languageCode string) string {
	var b strings.Builder
	b.WriteString("You are the voice assistant of a food-ordering platform. ")
	b.WriteString("Analyze the user's request and respond with strictly valid JSON matching this schema:\n")
	b.WriteString(`{
  "intent": "order_food" | "search_restaurant" | "check_status" | "unknown",
  "entities": {
    "restaurant": string or null,
    "items": [{"name": string, "quantity": integer}] or null,
    "location": string or null
  },
  "confidence": number between 0 and 1,
  "language": string,
  "response": string
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Output the JSON object only. Do not wrap it in markdown code fences.\n")
	b.WriteString("- Item names are singular dish names; quantities are positive integers.\n")
	b.WriteString("- Write \"response\" as a short spoken reply in the user's language.\n")
	b.WriteString("\nUser language: ")
	b.WriteString(languageCode)
	b.WriteString("\nUser request: ")
	b.WriteString(text)
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
