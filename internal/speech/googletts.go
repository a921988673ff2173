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

// GoogleTTSConfig holds the general cloud TTS connection settings.
type GoogleTTSConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GoogleTTS is the general cloud synthesis provider: the language code maps
// straight to the provider's voice selection with a fixed neutral voice,
// MP3 output, speaking rate 1.0 and pitch 0.
type GoogleTTS struct {
	cfg  GoogleTTSConfig
	http *http.Client
}

func NewGoogleTTS(cfg GoogleTTSConfig) *GoogleTTS {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://texttospeech.googleapis.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GoogleTTS{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text, languageCode string) ([]byte, string, error) {
	var reqBody synthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = languageCode
	reqBody.Voice.SSMLGender = "NEUTRAL"
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.SpeakingRate = 1.0
	reqBody.AudioConfig.Pitch = 0

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("%w: marshal request: %v", ErrSynthesis, err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1/text:synthesize?key=" + g.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer res.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: status %d: %s", ErrSynthesis, res.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed synthesizeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, "", fmt.Errorf("%w: decode response: %v", ErrSynthesis, err)
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode audio content: %v", ErrSynthesis, err)
	}
	return audio, "mp3", nil
}
