package voice

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/roshnidevi/bhojan/internal/speech"
)

type RecognizerEventType string

const (
	RecognizerPartial RecognizerEventType = "partial"
	RecognizerFinal   RecognizerEventType = "final"
	RecognizerError   RecognizerEventType = "error"
)

type RecognizerEvent struct {
	Type   RecognizerEventType
	Text   string
	Code   string
	Detail string
}

// RecognizerSession accepts audio for one capture and emits transcript
// events until closed.
type RecognizerSession interface {
	SendAudio(ctx context.Context, pcm []byte, sampleRate int, finalize bool) error
	Close() error
}

// Recognizer abstracts the speech-recognition capability so the
// orchestrator can run against the hosted recognizer, or against a mock in
// tests and keyless dev setups.
type Recognizer interface {
	Start(ctx context.Context, sessionID, languageCode string) (RecognizerSession, <-chan RecognizerEvent, error)
}

// BufferedRecognizer adapts the synchronous transcription API: audio chunks
// accumulate until the client finalizes the capture, then one recognize
// call produces the final transcript. It emits no interim transcripts.
type BufferedRecognizer struct {
	transcriber speech.Transcriber
}

func NewBufferedRecognizer(t speech.Transcriber) *BufferedRecognizer {
	return &BufferedRecognizer{transcriber: t}
}

func (r *BufferedRecognizer) Start(_ context.Context, _ string, languageCode string) (RecognizerSession, <-chan RecognizerEvent, error) {
	events := make(chan RecognizerEvent, 16)
	s := &bufferedSession{
		transcriber: r.transcriber,
		language:    languageCode,
		events:      events,
	}
	return s, events, nil
}

type bufferedSession struct {
	transcriber speech.Transcriber
	language    string

	mu         sync.Mutex
	buf        bytes.Buffer
	events     chan RecognizerEvent
	closed     bool
	finalizing bool
}

func (s *bufferedSession) SendAudio(ctx context.Context, pcm []byte, _ int, finalize bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if len(pcm) > 0 {
		_, _ = s.buf.Write(pcm)
	}
	if !finalize || s.finalizing {
		s.mu.Unlock()
		return nil
	}
	s.finalizing = true
	audio := make([]byte, s.buf.Len())
	copy(audio, s.buf.Bytes())
	s.buf.Reset()
	s.mu.Unlock()

	// The recognize call is a network round trip; run it off the caller's
	// loop and deliver the result as an event.
	go func() {
		text, err := s.transcriber.Transcribe(ctx, audio, s.language)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.finalizing = false
		if s.closed {
			return
		}
		if err != nil {
			s.emitLocked(RecognizerEvent{Type: RecognizerError, Code: "transcription_failed", Detail: err.Error()})
			return
		}
		s.emitLocked(RecognizerEvent{Type: RecognizerFinal, Text: text})
	}()
	return nil
}

func (s *bufferedSession) emitLocked(evt RecognizerEvent) {
	select {
	case s.events <- evt:
	default:
		// Event queue saturated; drop rather than block the session.
	}
}

func (s *bufferedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// MockRecognizer is a local fallback capability for tests and keyless dev.
// It emits an interim transcript per chunk and a fixed final transcript at
// finalize, mirroring the interim-result mode of a platform recognizer.
type MockRecognizer struct{}

func NewMockRecognizer() *MockRecognizer { return &MockRecognizer{} }

func (r *MockRecognizer) Start(_ context.Context, _ string, _ string) (RecognizerSession, <-chan RecognizerEvent, error) {
	events := make(chan RecognizerEvent, 16)
	return &mockRecognizerSession{events: events}, events, nil
}

type mockRecognizerSession struct {
	mu     sync.Mutex
	events chan RecognizerEvent
	chunks int
	closed bool
	heard  bool
}

func (s *mockRecognizerSession) SendAudio(_ context.Context, pcm []byte, _ int, finalize bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if len(pcm) > 0 {
		s.chunks++
		s.heard = true
		s.events <- RecognizerEvent{Type: RecognizerPartial, Text: strings.Repeat(". ", s.chunks%4+1)}
	}
	if finalize {
		text := "simulated voice input"
		if !s.heard {
			text = ""
		}
		s.events <- RecognizerEvent{Type: RecognizerFinal, Text: text}
	}
	return nil
}

func (s *mockRecognizerSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}
