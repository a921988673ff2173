package speech

import (
	"context"
	"math"
	"strings"

	"github.com/roshnidevi/bhojan/internal/audio"
)

// MockTranscriber is a local fallback used when no recognizer credential is
// configured. Non-empty audio becomes a fixed shopping utterance so the rest
// of the pipeline stays exercisable in dev.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (m *MockTranscriber) Transcribe(_ context.Context, audioBytes []byte, _ string) (string, error) {
	if len(audioBytes) == 0 {
		return "", nil
	}
	return "simulated voice input", nil
}

// MockSynthesizer emits a short sine tone wrapped as WAV, long enough to be
// audible in a browser during local development.
type MockSynthesizer struct{}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (m *MockSynthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, string, error) {
	const sampleRate = 16000
	// Roughly 60ms of tone per word, capped at 2s.
	words := len(strings.Fields(text))
	if words < 1 {
		words = 1
	}
	samples := words * sampleRate * 60 / 1000
	if samples > 2*sampleRate {
		samples = 2 * sampleRate
	}

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}

	wav, err := audio.EncodeWAVPCM16LE(pcm, sampleRate)
	if err != nil {
		return nil, "", err
	}
	return wav, "wav", nil
}
