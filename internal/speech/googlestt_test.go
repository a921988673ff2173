package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleSTTTranscribe(t *testing.T) {
	var gotReq recognizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q, want test-key", r.URL.Query().Get("key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"alternatives": []map[string]any{{"transcript": "two biryanis", "confidence": 0.94}}},
				{"alternatives": []map[string]any{{"transcript": "from khana house", "confidence": 0.91}}},
			},
		})
	}))
	defer srv.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "test-key", BaseURL: srv.URL})
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	got, err := stt.Transcribe(context.Background(), audio, "en-US")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "two biryanis\nfrom khana house" {
		t.Fatalf("Transcribe() = %q", got)
	}

	if gotReq.Config.Encoding != "LINEAR16" {
		t.Fatalf("encoding = %q, want LINEAR16", gotReq.Config.Encoding)
	}
	if gotReq.Config.SampleRateHertz != 16000 {
		t.Fatalf("sampleRateHertz = %d, want 16000", gotReq.Config.SampleRateHertz)
	}
	if gotReq.Config.LanguageCode != "en-US" {
		t.Fatalf("languageCode = %q", gotReq.Config.LanguageCode)
	}
	if gotReq.Audio.Content != base64.StdEncoding.EncodeToString(audio) {
		t.Fatalf("audio content not base64 of input")
	}
}

func TestGoogleSTTEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "k", BaseURL: srv.URL})
	got, err := stt.Transcribe(context.Background(), []byte{0x01}, "en-US")
	if err != nil {
		t.Fatalf("Transcribe() error = %v, want nil for empty results", err)
	}
	if got != "" {
		t.Fatalf("Transcribe() = %q, want empty", got)
	}
}

func TestGoogleSTTErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"code": 400}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := stt.Transcribe(context.Background(), []byte{0x01}, "en-US")
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("Transcribe() error = %v, want ErrTranscription", err)
	}
}
