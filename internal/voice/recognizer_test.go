package voice

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureTranscriber struct {
	mu       sync.Mutex
	audio    []byte
	language string
	calls    int
	reply    string
	err      error
}

func (c *captureTranscriber) Transcribe(_ context.Context, audio []byte, languageCode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.audio = append([]byte(nil), audio...)
	c.language = languageCode
	return c.reply, c.err
}

func waitEvent(t *testing.T, events <-chan RecognizerEvent) RecognizerEvent {
	t.Helper()
	select {
	case evt, ok := <-events:
		if !ok {
			t.Fatalf("event channel closed before event arrived")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for recognizer event")
		return RecognizerEvent{}
	}
}

func TestBufferedRecognizerAccumulatesUntilFinalize(t *testing.T) {
	tr := &captureTranscriber{reply: "two dosas please"}
	r := NewBufferedRecognizer(tr)

	sess, events, err := r.Start(context.Background(), "s1", "ta-IN")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()

	ctx := context.Background()
	_ = sess.SendAudio(ctx, []byte{0x01, 0x02}, 16000, false)
	_ = sess.SendAudio(ctx, []byte{0x03, 0x04}, 16000, false)
	if tr.calls != 0 {
		t.Fatalf("Transcribe called before finalize")
	}

	_ = sess.SendAudio(ctx, []byte{0x05}, 16000, true)

	evt := waitEvent(t, events)
	if evt.Type != RecognizerFinal || evt.Text != "two dosas please" {
		t.Fatalf("event = %+v, want final transcript", evt)
	}
	if tr.calls != 1 {
		t.Fatalf("Transcribe called %d times, want 1", tr.calls)
	}
	if !bytes.Equal(tr.audio, []byte{0x01, 0x02, 0x03, 0x04, 0x05}) {
		t.Fatalf("transcriber audio = %v, want accumulated chunks in order", tr.audio)
	}
	if tr.language != "ta-IN" {
		t.Fatalf("transcriber language = %q", tr.language)
	}
}

func TestBufferedRecognizerTranscriptionError(t *testing.T) {
	tr := &captureTranscriber{err: errors.New("recognizer unavailable")}
	r := NewBufferedRecognizer(tr)

	sess, events, err := r.Start(context.Background(), "s1", "en-US")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()

	_ = sess.SendAudio(context.Background(), []byte{0x01}, 16000, true)

	evt := waitEvent(t, events)
	if evt.Type != RecognizerError || evt.Code != "transcription_failed" {
		t.Fatalf("event = %+v, want transcription_failed error", evt)
	}
}

func TestBufferedRecognizerCloseDiscardsPendingResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tr := &blockingTranscriber{started: started, release: release}
	r := NewBufferedRecognizer(tr)

	sess, events, err := r.Start(context.Background(), "s1", "en-US")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_ = sess.SendAudio(context.Background(), []byte{0x01}, 16000, true)
	<-started
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	close(release)

	// The channel closes without delivering the stale final transcript.
	for evt := range events {
		t.Fatalf("unexpected event after Close: %+v", evt)
	}
}

type blockingTranscriber struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	close(b.started)
	<-b.release
	return "late transcript", nil
}

func TestBufferedRecognizerSendAfterClose(t *testing.T) {
	r := NewBufferedRecognizer(&captureTranscriber{})
	sess, _, err := r.Start(context.Background(), "s1", "en-US")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = sess.Close()
	if err := sess.SendAudio(context.Background(), []byte{0x01}, 16000, true); err != nil {
		t.Fatalf("SendAudio after Close error = %v, want nil no-op", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestMockRecognizerEmitsPartialsAndFinal(t *testing.T) {
	r := NewMockRecognizer()
	sess, events, err := r.Start(context.Background(), "s1", "en-US")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()

	ctx := context.Background()
	_ = sess.SendAudio(ctx, []byte{0x01}, 16000, false)
	if evt := waitEvent(t, events); evt.Type != RecognizerPartial {
		t.Fatalf("event = %+v, want partial", evt)
	}

	_ = sess.SendAudio(ctx, nil, 0, true)
	if evt := waitEvent(t, events); evt.Type != RecognizerFinal || evt.Text != "simulated voice input" {
		t.Fatalf("event = %+v, want simulated final", evt)
	}
}

func TestMockRecognizerFinalizeWithoutAudio(t *testing.T) {
	r := NewMockRecognizer()
	sess, events, err := r.Start(context.Background(), "s1", "en-US")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()

	_ = sess.SendAudio(context.Background(), nil, 0, true)
	if evt := waitEvent(t, events); evt.Type != RecognizerFinal || evt.Text != "" {
		t.Fatalf("event = %+v, want empty final", evt)
	}
}
