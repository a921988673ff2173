package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/roshnidevi/bhojan/internal/config"
	"github.com/roshnidevi/bhojan/internal/gemini"
	"github.com/roshnidevi/bhojan/internal/history"
	"github.com/roshnidevi/bhojan/internal/httpapi"
	"github.com/roshnidevi/bhojan/internal/intent"
	"github.com/roshnidevi/bhojan/internal/language"
	"github.com/roshnidevi/bhojan/internal/observability"
	"github.com/roshnidevi/bhojan/internal/session"
	"github.com/roshnidevi/bhojan/internal/speech"
	"github.com/roshnidevi/bhojan/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()

	// Intent + language detection share one LLM backend.
	var llm interface {
		GenerateText(ctx context.Context, prompt string) (string, error)
	}
	switch cfg.IntentProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			log.Fatalf("INTENT_PROVIDER=gemini but GEMINI_API_KEY is not set")
		}
		llm = gemini.NewClient(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
		log.Printf("intent provider: gemini (%s)", cfg.GeminiModel)
	case "mock":
		llm = gemini.NewMockClient()
		log.Printf("intent provider: mock")
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			llm = gemini.NewClient(gemini.Config{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				BaseURL: cfg.GeminiBaseURL,
				Timeout: cfg.ProviderTimeout,
			})
			log.Printf("intent provider: gemini (%s)", cfg.GeminiModel)
		} else {
			llm = gemini.NewMockClient()
			log.Printf("intent provider: mock (no gemini key)")
		}
	default:
		log.Fatalf("invalid INTENT_PROVIDER: %q (expected auto|gemini|mock)", cfg.IntentProvider)
	}

	detector := language.NewDetector(llm)
	analyzer := intent.NewAnalyzer(llm)

	var transcriber speech.Transcriber
	switch cfg.STTProvider {
	case "google":
		if strings.TrimSpace(cfg.GoogleSpeechAPIKey) == "" {
			log.Fatalf("STT_PROVIDER=google but GOOGLE_SPEECH_API_KEY is not set")
		}
		transcriber = speech.NewGoogleSTT(speech.GoogleSTTConfig{
			APIKey:  cfg.GoogleSpeechAPIKey,
			BaseURL: cfg.GoogleSpeechURL,
			Timeout: cfg.ProviderTimeout,
		})
		log.Printf("stt provider: google")
	case "mock":
		transcriber = speech.NewMockTranscriber()
		log.Printf("stt provider: mock")
	case "auto":
		if strings.TrimSpace(cfg.GoogleSpeechAPIKey) != "" {
			transcriber = speech.NewGoogleSTT(speech.GoogleSTTConfig{
				APIKey:  cfg.GoogleSpeechAPIKey,
				BaseURL: cfg.GoogleSpeechURL,
				Timeout: cfg.ProviderTimeout,
			})
			log.Printf("stt provider: google")
		} else {
			transcriber = speech.NewMockTranscriber()
			log.Printf("stt provider: mock (no google speech key)")
		}
	default:
		log.Fatalf("invalid STT_PROVIDER: %q (expected auto|google|mock)", cfg.STTProvider)
	}

	var synth speech.Synthesizer
	tryGoogleTTS := func() bool {
		if strings.TrimSpace(cfg.GoogleTTSAPIKey) == "" {
			return false
		}
		synth = speech.NewGoogleTTS(speech.GoogleTTSConfig{
			APIKey:  cfg.GoogleTTSAPIKey,
			BaseURL: cfg.GoogleTTSURL,
			Timeout: cfg.ProviderTimeout,
		})
		log.Printf("tts provider: google")
		return true
	}
	tryElevenLabs := func() bool {
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			return false
		}
		synth = speech.NewElevenLabs(speech.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			BaseURL: cfg.ElevenLabsBaseURL,
			ModelID: cfg.ElevenLabsModelID,
			Timeout: cfg.ProviderTimeout,
		})
		log.Printf("tts provider: elevenlabs")
		return true
	}
	switch cfg.TTSProvider {
	case "google":
		if !tryGoogleTTS() {
			log.Fatalf("TTS_PROVIDER=google but GOOGLE_TTS_API_KEY is not set")
		}
	case "elevenlabs":
		if !tryElevenLabs() {
			log.Fatalf("TTS_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
		}
	case "mock":
		synth = speech.NewMockSynthesizer()
		log.Printf("tts provider: mock")
	case "auto":
		if !tryGoogleTTS() && !tryElevenLabs() {
			synth = speech.NewMockSynthesizer()
			log.Printf("tts provider: mock (no google tts or elevenlabs key)")
		}
	default:
		log.Fatalf("invalid TTS_PROVIDER: %q (expected auto|google|elevenlabs|mock)", cfg.TTSProvider)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	orchestrator := voice.NewOrchestrator(
		sessions,
		voice.NewBufferedRecognizer(transcriber),
		detector,
		analyzer,
		synth,
		store,
		metrics,
	)

	api := httpapi.New(cfg, sessions, orchestrator, synth, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
