package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/roshnidevi/bhojan/internal/config"
	"github.com/roshnidevi/bhojan/internal/history"
	"github.com/roshnidevi/bhojan/internal/intent"
	"github.com/roshnidevi/bhojan/internal/observability"
	"github.com/roshnidevi/bhojan/internal/session"
)

type stubOrchestrator struct {
	res      intent.Result
	audio    []byte
	format   string
	err      error
	lastLang string
	lastUser string
}

func (s *stubOrchestrator) RunConnection(ctx context.Context, _ *session.Session, inbound <-chan any, _ chan<- any) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-inbound:
			if !ok {
				return nil
			}
		}
	}
}

func (s *stubOrchestrator) ProcessText(_ context.Context, userID, _, _, languageCode string) (intent.Result, []byte, string, error) {
	s.lastUser = userID
	s.lastLang = languageCode
	if s.err != nil {
		return intent.Result{}, nil, "", s.err
	}
	return s.res, s.audio, s.format, nil
}

type stubSynth struct {
	err error
}

func (s *stubSynth) Synthesize(_ context.Context, text, _ string) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []byte("tts:" + text), "mp3", nil
}

func newTestServer(t *testing.T, orch *stubOrchestrator, synth *stubSynth) (*httptest.Server, *session.Manager, *history.InMemoryStore) {
	t.Helper()
	cfg := config.Config{SessionInactivityTimeout: 2 * time.Minute}
	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	store := history.NewInMemoryStore()
	metrics := observability.NewMetrics(fmt.Sprintf("bhojan_test_api_%s_%d", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano()))
	srv := New(cfg, sessions, orch, synth, store, metrics)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, sessions, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func TestProcessEndpoint(t *testing.T) {
	orch := &stubOrchestrator{
		res: intent.Result{
			Intent:     intent.IntentOrderFood,
			Confidence: 0.9,
			Language:   "en-US",
			Response:   "Order placed.",
		},
		audio:  []byte("mp3-bytes"),
		format: "mp3",
	}
	ts, _, _ := newTestServer(t, orch, &stubSynth{})

	res := postJSON(t, ts.URL+"/api/voice/process", map[string]string{
		"text":     "order biryani",
		"language": "en-US",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var got struct {
		Response    string        `json:"response"`
		Audio       string        `json:"audio"`
		AudioFormat string        `json:"audio_format"`
		Intent      intent.Result `json:"intent"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Response != "Order placed." {
		t.Fatalf("response = %q", got.Response)
	}
	if got.Intent.Intent != intent.IntentOrderFood {
		t.Fatalf("intent = %q", got.Intent.Intent)
	}
	if got.Audio != base64.StdEncoding.EncodeToString([]byte("mp3-bytes")) || got.AudioFormat != "mp3" {
		t.Fatalf("audio = %q format %q", got.Audio, got.AudioFormat)
	}
	if orch.lastUser != "anonymous" {
		t.Fatalf("user = %q, want anonymous without bearer", orch.lastUser)
	}
	if orch.lastLang != "en-US" {
		t.Fatalf("language = %q", orch.lastLang)
	}
}

func TestProcessEndpointRequiresText(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res := postJSON(t, ts.URL+"/api/voice/process", map[string]string{"text": "   "})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestProcessEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"quota", fmt.Errorf("%w: upstream", intent.ErrQuotaExceeded), http.StatusTooManyRequests, "quota_exceeded"},
		{"credentials", fmt.Errorf("%w: kid=abc123", intent.ErrInvalidCredentials), http.StatusBadGateway, "assistant_unavailable"},
		{"analysis", fmt.Errorf("%w: no JSON", intent.ErrAnalysisFailed), http.StatusBadGateway, "analysis_failed"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "unknown_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, _, _ := newTestServer(t, &stubOrchestrator{err: tc.err}, &stubSynth{})

			res := postJSON(t, ts.URL+"/api/voice/process", map[string]string{"text": "order"})
			defer res.Body.Close()
			if res.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tc.wantStatus)
			}

			var got errorResponse
			if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if got.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", got.Code, tc.wantCode)
			}
			if strings.Contains(got.Error, "abc123") {
				t.Fatalf("credential detail leaked to client: %q", got.Error)
			}
		})
	}
}

func TestTextToSpeechEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res := postJSON(t, ts.URL+"/api/voice/text-to-speech", map[string]string{
		"text":     "your order is ready",
		"language": "hi-IN",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var got ttsResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := base64.StdEncoding.EncodeToString([]byte("tts:your order is ready"))
	if got.Data.Audio != want || got.Data.Format != "mp3" {
		t.Fatalf("data = %+v", got.Data)
	}
}

func TestTextToSpeechEndpointFailure(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{err: fmt.Errorf("voice service down")})

	res := postJSON(t, ts.URL+"/api/voice/text-to-speech", map[string]string{"text": "hello"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.StatusCode)
	}

	var got errorResponse
	_ = json.NewDecoder(res.Body).Decode(&got)
	if got.Code != "synthesis_failed" {
		t.Fatalf("code = %q", got.Code)
	}
}

func TestListLanguagesEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res, err := http.Get(ts.URL + "/api/voice/languages")
	if err != nil {
		t.Fatalf("GET languages error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var got listLanguagesResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Default != "en-US" {
		t.Fatalf("default = %q", got.Default)
	}
	if len(got.Languages) == 0 || got.Languages[0].Code != "en-US" {
		t.Fatalf("languages = %+v", got.Languages)
	}
}

func TestCreateAndEndSession(t *testing.T) {
	ts, sessions, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res := postJSON(t, ts.URL+"/api/voice/session", map[string]string{
		"user_id":  "user-1",
		"language": "hi-IN",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", res.StatusCode)
	}

	var created session.CreateResponse
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID == "" || created.Language != "hi-IN" {
		t.Fatalf("created = %+v", created)
	}
	if sessions.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", sessions.ActiveCount())
	}

	endRes, err := http.Post(ts.URL+"/api/voice/session/"+created.SessionID+"/end", "application/json", nil)
	if err != nil {
		t.Fatalf("end session request error = %v", err)
	}
	defer endRes.Body.Close()
	if endRes.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200", endRes.StatusCode)
	}
	if sessions.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d after end, want 0", sessions.ActiveCount())
	}
}

func TestCreateSessionRejectsUnsupportedLanguage(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res := postJSON(t, ts.URL+"/api/voice/session", map[string]string{"language": "fr-FR"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestEndUnknownSession(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res, err := http.Post(ts.URL+"/api/voice/session/not-a-session/end", "application/json", nil)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts, _, store := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	_ = store.Save(context.Background(), history.Interaction{
		UserID:     "user-7",
		SessionID:  "s1",
		Transcript: "order dosa",
		Intent:     "order_food",
	})

	res, err := http.Get(ts.URL + "/api/voice/history?user_id=user-7")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var got struct {
		Interactions []history.Interaction `json:"interactions"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Interactions) != 1 || got.Interactions[0].Transcript != "order dosa" {
		t.Fatalf("interactions = %+v", got.Interactions)
	}
}

func TestHistoryEndpointRequiresUser(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	res, err := http.Get(ts.URL + "/api/voice/history")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubOrchestrator{}, &stubSynth{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, res.StatusCode)
		}
	}
}

func TestBearerUser(t *testing.T) {
	mk := func(header string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/voice/process", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		return r
	}

	if got := bearerUser(mk("")); got != "" {
		t.Fatalf("bearerUser(no header) = %q, want empty", got)
	}
	if got := bearerUser(mk("Basic dXNlcjpwYXNz")); got != "" {
		t.Fatalf("bearerUser(basic auth) = %q, want empty", got)
	}

	a := bearerUser(mk("Bearer token-one"))
	b := bearerUser(mk("Bearer token-one"))
	c := bearerUser(mk("Bearer token-two"))
	if a == "" || a != b {
		t.Fatalf("bearerUser not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("distinct tokens mapped to the same user key")
	}
	if strings.Contains(a, "token-one") {
		t.Fatalf("raw token leaked into user key: %q", a)
	}
}
