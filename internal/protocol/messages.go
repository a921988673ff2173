package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roshnidevi/bhojan/internal/intent"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientAudioChunk  MessageType = "client_audio_chunk"
	TypeClientControl     MessageType = "client_control"
	TypeTranscriptInterim MessageType = "transcript_interim"
	TypeTranscriptFinal   MessageType = "transcript_final"
	TypeAssistantReply    MessageType = "assistant_reply"
	TypeAssistantAudio    MessageType = "assistant_audio"
	TypeStateEvent        MessageType = "state_event"
	TypeErrorEvent        MessageType = "error_event"
)

// Client control actions.
const (
	ActionStartListening = "start_listening"
	ActionStopListening  = "stop_listening"
	ActionFinalize       = "finalize"
	ActionUtterance      = "utterance"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientAudioChunk struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	Seq         int         `json:"seq"`
	PCM16Base64 string      `json:"pcm16_base64"`
	SampleRate  int         `json:"sample_rate"`
}

// ClientControl drives the session state machine. ActionUtterance carries a
// typed-in utterance directly, bypassing speech capture.
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
	Text      string      `json:"text,omitempty"`
	Language  string      `json:"language,omitempty"`
}

type TranscriptInterim struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type TranscriptFinal struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type AssistantReply struct {
	Type      MessageType   `json:"type"`
	SessionID string        `json:"session_id"`
	TurnID    string        `json:"turn_id"`
	Text      string        `json:"text"`
	Intent    intent.Result `json:"intent"`
}

type AssistantAudio struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	TurnID      string      `json:"turn_id"`
	Format      string      `json:"format"`
	AudioBase64 string      `json:"audio_base64"`
}

// StateEvent mirrors the session state snapshot after every transition so
// the UI never has to infer state.
type StateEvent struct {
	Type         MessageType `json:"type"`
	SessionID    string      `json:"session_id"`
	IsListening  bool        `json:"is_listening"`
	IsProcessing bool        `json:"is_processing"`
	Transcript   string      `json:"transcript"`
	Response     string      `json:"response"`
	Language     string      `json:"language"`
	Error        string      `json:"error,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound client payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientAudioChunk:
		var msg ClientAudioChunk
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.PCM16Base64 == "" || msg.SampleRate <= 0 {
			return nil, errors.New("invalid client_audio_chunk")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		if msg.Action == ActionUtterance && msg.Text == "" {
			return nil, errors.New("utterance control requires text")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
