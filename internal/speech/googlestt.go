package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GoogleSTTConfig holds the hosted recognizer connection settings.
type GoogleSTTConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GoogleSTT wraps the hosted speech recognizer's synchronous recognize call.
type GoogleSTT struct {
	cfg  GoogleSTTConfig
	http *http.Client
}

func NewGoogleSTT(cfg GoogleSTTConfig) *GoogleSTT {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://speech.googleapis.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GoogleSTT{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends LINEAR16/16kHz audio to the recognizer and joins every
// result's top alternative with newlines, preserving service order. An
// empty result list is an empty transcript, not an error.
func (g *GoogleSTT) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	body, err := json.Marshal(recognizeRequest{
		Config: recognizeConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: 16000,
			LanguageCode:    languageCode,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrTranscription, err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1/speech:recognize?key=" + g.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	defer res.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscription, res.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTranscription, err)
	}

	parts := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return strings.Join(parts, "\n"), nil
}
