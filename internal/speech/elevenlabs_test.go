package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVoiceForLanguage(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"en-US", elevenDefaultVoiceID},
		{"hi-IN", elevenVoiceByLanguage["hi-IN"]},
		{"ta-IN", elevenVoiceByLanguage["ta-IN"]},
		{"te-IN", elevenDefaultVoiceID}, // unmapped, falls back to English
		{"fr-FR", elevenDefaultVoiceID},
		{"", elevenDefaultVoiceID},
	}
	for _, tc := range cases {
		if got := voiceForLanguage(tc.code); got != tc.want {
			t.Fatalf("voiceForLanguage(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	mp3 := []byte("raw-mpeg-frames")
	var gotPath, gotKey string
	var gotReq elevenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(mp3)
	}))
	defer srv.Close()

	el := NewElevenLabs(ElevenLabsConfig{APIKey: "xi-secret", BaseURL: srv.URL})
	audio, format, err := el.Synthesize(context.Background(), "आपका ऑर्डर तैयार है", "hi-IN")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if format != "mp3" {
		t.Fatalf("format = %q, want mp3", format)
	}
	if !bytes.Equal(audio, mp3) {
		t.Fatalf("audio bytes altered; want raw provider body")
	}

	if !strings.HasSuffix(gotPath, "/v1/text-to-speech/"+elevenVoiceByLanguage["hi-IN"]) {
		t.Fatalf("request path = %q, want hi-IN voice", gotPath)
	}
	if gotKey != "xi-secret" {
		t.Fatalf("xi-api-key = %q", gotKey)
	}
	if gotReq.ModelID != "eleven_multilingual_v2" {
		t.Fatalf("model_id = %q", gotReq.ModelID)
	}
	if gotReq.VoiceSettings.Stability != 0.5 {
		t.Fatalf("stability = %v, want 0.5", gotReq.VoiceSettings.Stability)
	}
	if gotReq.VoiceSettings.SimilarityBoost != 0.75 {
		t.Fatalf("similarity_boost = %v, want 0.75", gotReq.VoiceSettings.SimilarityBoost)
	}
}

func TestElevenLabsUnmappedLanguageUsesDefaultVoice(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	el := NewElevenLabs(ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL})
	if _, _, err := el.Synthesize(context.Background(), "hello", "mr-IN"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.HasSuffix(gotPath, "/v1/text-to-speech/"+elevenDefaultVoiceID) {
		t.Fatalf("request path = %q, want default voice", gotPath)
	}
}

func TestElevenLabsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	el := NewElevenLabs(ElevenLabsConfig{APIKey: "bad", BaseURL: srv.URL})
	_, _, err := el.Synthesize(context.Background(), "hello", "en-US")
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("Synthesize() error = %v, want ErrSynthesis", err)
	}
}
