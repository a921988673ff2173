package language

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestDetectSupportedCode(t *testing.T) {
	gen := &fakeGenerator{reply: "hi-IN"}
	d := NewDetector(gen)

	got := d.Detect(context.Background(), "मुझे दो समोसे चाहिए")
	if got != "hi-IN" {
		t.Fatalf("Detect() = %q, want hi-IN", got)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("GenerateText called %d times, want 1", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "hi-IN") {
		t.Fatalf("prompt does not offer the supported codes: %q", gen.prompts[0])
	}
}

func TestDetectCleansModelNoise(t *testing.T) {
	cases := []struct {
		reply string
		want  string
	}{
		{"en-US", "en-US"},
		{"`ta-IN`", "ta-IN"},
		{"\"bn-IN\"", "bn-IN"},
		{"mr-IN\nThe text is in Marathi.", "mr-IN"},
		{"  te-IN  ", "te-IN"},
	}
	for _, tc := range cases {
		d := NewDetector(&fakeGenerator{reply: tc.reply})
		if got := d.Detect(context.Background(), "text"); got != tc.want {
			t.Fatalf("Detect() with reply %q = %q, want %q", tc.reply, got, tc.want)
		}
	}
}

func TestDetectUnsupportedFallsBack(t *testing.T) {
	d := NewDetector(&fakeGenerator{reply: "fr-FR"})
	if got := d.Detect(context.Background(), "bonjour"); got != DefaultCode {
		t.Fatalf("Detect() = %q, want %q", got, DefaultCode)
	}
}

func TestDetectErrorFailsOpen(t *testing.T) {
	d := NewDetector(&fakeGenerator{err: errors.New("upstream down")})
	if got := d.Detect(context.Background(), "hello"); got != DefaultCode {
		t.Fatalf("Detect() after error = %q, want %q", got, DefaultCode)
	}
}
