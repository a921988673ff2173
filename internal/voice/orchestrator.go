package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roshnidevi/bhojan/internal/history"
	"github.com/roshnidevi/bhojan/internal/intent"
	"github.com/roshnidevi/bhojan/internal/language"
	"github.com/roshnidevi/bhojan/internal/observability"
	"github.com/roshnidevi/bhojan/internal/protocol"
	"github.com/roshnidevi/bhojan/internal/session"
	"github.com/roshnidevi/bhojan/internal/speech"
)

// State is one session's voice assistant snapshot. It is owned exclusively
// by the connection loop; all mutation happens inside RunConnection.
type State struct {
	IsListening  bool   `json:"is_listening"`
	IsProcessing bool   `json:"is_processing"`
	Transcript   string `json:"transcript"`
	Response     string `json:"response"`
	Language     string `json:"language"`
	Error        string `json:"error,omitempty"`
}

// LanguageDetector resolves the language of an utterance. Implementations
// never fail; they fall back to the default storefront language.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) string
}

// IntentAnalyzer turns an utterance into a structured ordering intent.
type IntentAnalyzer interface {
	Analyze(ctx context.Context, text, languageCode string) (intent.Result, error)
}

const historySaveTimeout = 2 * time.Second

// Orchestrator coordinates capture, transcription, intent analysis and
// synthesis for voice-ordering sessions.
type Orchestrator struct {
	sessions   *session.Manager
	recognizer Recognizer
	detector   LanguageDetector
	analyzer   IntentAnalyzer
	synth      speech.Synthesizer
	store      history.Store
	metrics    *observability.Metrics
}

func NewOrchestrator(
	sessions *session.Manager,
	recognizer Recognizer,
	detector LanguageDetector,
	analyzer IntentAnalyzer,
	synth speech.Synthesizer,
	store history.Store,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		recognizer: recognizer,
		detector:   detector,
		analyzer:   analyzer,
		synth:      synth,
		store:      store,
		metrics:    metrics,
	}
}

// ProcessText runs the one-shot pipeline for a typed utterance: detect the
// language when the caller doesn't know it, analyze the intent, synthesize
// the spoken reply. A synthesis failure is logged and drops the audio from
// the result; the text reply still reaches the caller.
func (o *Orchestrator) ProcessText(ctx context.Context, userID, sessionID, text, languageCode string) (intent.Result, []byte, string, error) {
	lang := strings.TrimSpace(languageCode)
	if lang == "" {
		start := time.Now()
		lang = o.detector.Detect(ctx, text)
		o.metrics.ObserveStage("detect", time.Since(start))
	}

	start := time.Now()
	res, err := o.analyzer.Analyze(ctx, text, lang)
	o.metrics.ObserveStage("analyze", time.Since(start))
	if err != nil {
		code, _ := classifyPipelineError(err)
		o.metrics.ProviderErrors.WithLabelValues("llm", code).Inc()
		return intent.Result{}, nil, "", err
	}
	o.metrics.IntentResults.WithLabelValues(string(res.Intent)).Inc()
	if res.Language == "" {
		res.Language = lang
	}

	var audio []byte
	var format string
	if strings.TrimSpace(res.Response) != "" {
		start = time.Now()
		audio, format, err = o.synth.Synthesize(ctx, res.Response, res.Language)
		o.metrics.ObserveStage("synthesize", time.Since(start))
		if err != nil {
			o.metrics.ProviderErrors.WithLabelValues("tts", "synthesis_failed").Inc()
			log.Printf("synthesis failed for session %s: %v", sessionID, err)
			audio, format = nil, ""
		}
	}

	o.saveInteraction(ctx, userID, sessionID, text, res)
	return res, audio, format, nil
}

// RunConnection drives one websocket connection's session state machine.
func (o *Orchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	st := State{Language: s.Language}

	var recSession RecognizerSession
	var recEvents <-chan RecognizerEvent
	closeCapture := func() {
		if recSession != nil {
			_ = recSession.Close()
			recSession = nil
			recEvents = nil
		}
	}
	defer closeCapture()

	emitState := func() {
		o.send(outbound, protocol.StateEvent{
			Type:         protocol.TypeStateEvent,
			SessionID:    s.ID,
			IsListening:  st.IsListening,
			IsProcessing: st.IsProcessing,
			Transcript:   st.Transcript,
			Response:     st.Response,
			Language:     st.Language,
			Error:        st.Error,
		})
	}
	emitError := func(code, source string, retryable bool, detail string) {
		o.send(outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      code,
			Source:    source,
			Retryable: retryable,
			Detail:    detail,
		})
	}

	emitState()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			switch m := msg.(type) {
			case protocol.ClientAudioChunk:
				if recSession == nil || !st.IsListening {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(m.PCM16Base64)
				if err != nil {
					emitError("invalid_audio_chunk", "gateway", false, err.Error())
					continue
				}
				_ = recSession.SendAudio(ctx, pcm, m.SampleRate, false)
				_ = o.sessions.Touch(s.ID)

			case protocol.ClientControl:
				switch m.Action {
				case protocol.ActionStartListening:
					if st.IsProcessing {
						emitError("busy", "gateway", true, "session is processing an utterance")
						continue
					}
					if st.IsListening {
						continue
					}
					rs, ev, err := o.recognizer.Start(ctx, s.ID, o.captureLanguage(st.Language))
					if err != nil {
						o.metrics.ProviderErrors.WithLabelValues("stt", "connect_failed").Inc()
						emitError("stt_connect_failed", "stt", true, err.Error())
						continue
					}
					recSession, recEvents = rs, ev
					st.IsListening = true
					st.Transcript = ""
					st.Error = ""
					o.metrics.SessionEvents.WithLabelValues("listening_started").Inc()
					emitState()

				case protocol.ActionStopListening:
					// Explicit stop discards the in-flight interim transcript.
					// An already dispatched processing turn keeps running.
					closeCapture()
					if st.IsListening {
						st.IsListening = false
						st.Transcript = ""
						o.metrics.SessionEvents.WithLabelValues("listening_stopped").Inc()
						emitState()
					}

				case protocol.ActionFinalize:
					if recSession != nil {
						_ = recSession.SendAudio(ctx, nil, 0, true)
					}

				case protocol.ActionUtterance:
					if st.IsProcessing {
						emitError("busy", "gateway", true, "session is processing an utterance")
						continue
					}
					closeCapture()
					st.IsListening = false
					if lang := strings.TrimSpace(m.Language); lang != "" {
						st.Language = lang
					}
					st.Transcript = m.Text
					o.processTurn(ctx, s, &st, m.Text, outbound, emitState, emitError)

				default:
					emitError("invalid_action", "gateway", false, "unknown control action: "+m.Action)
				}
			}

		case evt, ok := <-recEvents:
			if !ok {
				recEvents = nil
				recSession = nil
				continue
			}
			switch evt.Type {
			case RecognizerPartial:
				// Interim transcripts update state only; nothing downstream runs.
				st.Transcript = evt.Text
				o.send(outbound, protocol.TranscriptInterim{Type: protocol.TypeTranscriptInterim, SessionID: s.ID, Text: evt.Text})

			case RecognizerFinal:
				closeCapture()
				st.IsListening = false
				st.Transcript = evt.Text
				o.send(outbound, protocol.TranscriptFinal{Type: protocol.TypeTranscriptFinal, SessionID: s.ID, Text: evt.Text})
				if strings.TrimSpace(evt.Text) == "" {
					emitState()
					continue
				}
				o.processTurn(ctx, s, &st, evt.Text, outbound, emitState, emitError)

			case RecognizerError:
				closeCapture()
				st.IsListening = false
				st.Error = language.UIString(o.captureLanguage(st.Language), "error")
				o.metrics.ProviderErrors.WithLabelValues("stt", evt.Code).Inc()
				emitError(evt.Code, "stt", false, evt.Detail)
				emitState()
			}
		}
	}
}

// processTurn runs finalize -> analyze -> synthesize for one utterance.
// It runs inline in the connection loop, which serializes processing per
// session: a second utterance cannot start until this one finishes.
func (o *Orchestrator) processTurn(
	ctx context.Context,
	s *session.Session,
	st *State,
	text string,
	outbound chan<- any,
	emitState func(),
	emitError func(code, source string, retryable bool, detail string),
) {
	st.IsProcessing = true
	st.Error = ""
	st.Response = ""
	emitState()

	turnID := uuid.NewString()

	if strings.TrimSpace(st.Language) == "" {
		start := time.Now()
		st.Language = o.detector.Detect(ctx, text)
		o.metrics.ObserveStage("detect", time.Since(start))
		_ = o.sessions.SetLanguage(s.ID, st.Language)
	}

	start := time.Now()
	res, err := o.analyzer.Analyze(ctx, text, st.Language)
	o.metrics.ObserveStage("analyze", time.Since(start))
	if err != nil {
		code, retryable := classifyPipelineError(err)
		o.metrics.ProviderErrors.WithLabelValues("llm", code).Inc()
		// Credential detail belongs in operator logs, not on the wire.
		if errors.Is(err, intent.ErrInvalidCredentials) {
			log.Printf("intent analysis credential failure for session %s: %v", s.ID, err)
			emitError(code, "llm", false, "assistant temporarily unavailable")
		} else {
			emitError(code, "llm", retryable, err.Error())
		}
		st.Error = language.UIString(st.Language, "error")
		st.IsProcessing = false
		emitState()
		return
	}

	o.metrics.IntentResults.WithLabelValues(string(res.Intent)).Inc()
	if res.Language != "" && res.Language != st.Language {
		st.Language = res.Language
		_ = o.sessions.SetLanguage(s.ID, st.Language)
	}
	st.Response = res.Response
	_ = o.sessions.RecordUtterance(s.ID)

	o.send(outbound, protocol.AssistantReply{
		Type:      protocol.TypeAssistantReply,
		SessionID: s.ID,
		TurnID:    turnID,
		Text:      res.Response,
		Intent:    res,
	})

	if strings.TrimSpace(res.Response) != "" {
		start = time.Now()
		audio, format, synErr := o.synth.Synthesize(ctx, res.Response, st.Language)
		o.metrics.ObserveStage("synthesize", time.Since(start))
		if synErr != nil {
			o.metrics.ProviderErrors.WithLabelValues("tts", "synthesis_failed").Inc()
			emitError("synthesis_failed", "tts", true, synErr.Error())
		} else {
			o.send(outbound, protocol.AssistantAudio{
				Type:        protocol.TypeAssistantAudio,
				SessionID:   s.ID,
				TurnID:      turnID,
				Format:      format,
				AudioBase64: base64.StdEncoding.EncodeToString(audio),
			})
		}
	}

	o.saveInteraction(ctx, s.UserID, s.ID, text, res)

	st.IsProcessing = false
	emitState()
}

func (o *Orchestrator) captureLanguage(code string) string {
	if language.IsSupported(code) {
		return code
	}
	return language.DefaultCode
}

// saveInteraction is best-effort; history must never fail the pipeline.
func (o *Orchestrator) saveInteraction(ctx context.Context, userID, sessionID, transcript string, res intent.Result) {
	if o.store == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historySaveTimeout)
	defer cancel()
	err := o.store.Save(saveCtx, history.Interaction{
		SessionID:  sessionID,
		UserID:     userID,
		Language:   res.Language,
		Transcript: transcript,
		Intent:     string(res.Intent),
		Confidence: res.Confidence,
		Response:   res.Response,
	})
	if err != nil {
		log.Printf("history save failed for session %s: %v", sessionID, err)
	}
}

func (o *Orchestrator) send(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		// Keep websocket writes single-threaded; drop if the queue is saturated.
		o.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
	}
}

// classifyPipelineError maps analyzer errors onto wire codes.
func classifyPipelineError(err error) (code string, retryable bool) {
	switch {
	case errors.Is(err, intent.ErrQuotaExceeded):
		return "quota_exceeded", true
	case errors.Is(err, intent.ErrInvalidCredentials):
		return "invalid_credentials", false
	case errors.Is(err, intent.ErrAnalysisFailed):
		return "analysis_failed", false
	default:
		return "unknown_error", false
	}
}
