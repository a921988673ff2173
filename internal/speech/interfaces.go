package speech

import (
	"context"
	"errors"
)

// Transcriber converts raw audio bytes into text.
//
// Callers must supply 16-bit linear PCM at 16 kHz; adapters do not
// resample or transcode.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// Synthesizer converts text into audio bytes. The returned format is a
// short identifier such as "mp3" or "wav".
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, string, error)
}

// Adapter error taxonomy. Neither class is retried.
var (
	ErrTranscription = errors.New("speech transcription failed")
	ErrSynthesis     = errors.New("speech synthesis failed")
)
