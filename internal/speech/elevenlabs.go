package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ElevenLabsConfig holds the specialized voice synthesis provider settings.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
	Timeout time.Duration
}

// ElevenLabs is the specialized synthesis provider. It keeps a static map
// from storefront language codes to provider voice identifiers; unmapped
// codes fall back to the English voice.
type ElevenLabs struct {
	cfg  ElevenLabsConfig
	http *http.Client
}

func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ElevenLabs{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

const elevenDefaultVoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel, English

var elevenVoiceByLanguage = map[string]string{
	"en-US": elevenDefaultVoiceID,
	"hi-IN": "zT03pEAEi0VHKciJODfn",
	"bn-IN": "WVUMDiQFbwDHTjUKLZMk",
	"ta-IN": "gqWGuciYsea4SiDKRmo8",
}

// voiceForLanguage resolves the provider voice for a language code.
func voiceForLanguage(languageCode string) string {
	if id, ok := elevenVoiceByLanguage[languageCode]; ok {
		return id
	}
	return elevenDefaultVoiceID
}

type elevenRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

// Synthesize returns the raw audio bytes from the provider; no base64
// wrapping happens at this layer. Fixed stability 0.5 and similarity
// boost 0.75.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, languageCode string) ([]byte, string, error) {
	reqBody := elevenRequest{Text: text, ModelID: e.cfg.ModelID}
	reqBody.VoiceSettings.Stability = 0.5
	reqBody.VoiceSettings.SimilarityBoost = 0.75

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("%w: marshal request: %v", ErrSynthesis, err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") +
		"/v1/text-to-speech/" + url.PathEscape(voiceForLanguage(languageCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	res, err := e.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return nil, "", fmt.Errorf("%w: status %d: %s", ErrSynthesis, res.StatusCode, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read audio: %v", ErrSynthesis, err)
	}
	return audio, "mp3", nil
}
