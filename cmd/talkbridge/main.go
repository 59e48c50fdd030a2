package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"

	tbconfig "github.com/talkbridge/talkbridge/config"
	"github.com/talkbridge/talkbridge/internal/auth"
	"github.com/talkbridge/talkbridge/internal/kiosk/handler"
	"github.com/talkbridge/talkbridge/internal/session"
	"github.com/talkbridge/talkbridge/internal/speech/langmap"
	"github.com/talkbridge/talkbridge/internal/speech/registry"
	"github.com/talkbridge/talkbridge/internal/store"
	"github.com/talkbridge/talkbridge/pkg/events"

	// Register speech and translation backends via init().
	_ "github.com/talkbridge/talkbridge/internal/speech/backends/assemblyai"
	_ "github.com/talkbridge/talkbridge/internal/speech/backends/azure"
	_ "github.com/talkbridge/talkbridge/internal/speech/backends/google"
	_ "github.com/talkbridge/talkbridge/internal/translate/microsoft"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[tbconfig.KioskConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("talkbridge"),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "kiosk", eventRef)

	// --- Persistence ---
	repo := store.NewRepository(
		srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"),
	)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("migrating datastore: %v", err)
	}

	// --- Sessions ---
	sessions, err := session.NewManager(cfg.SessionSecret, session.Options{
		CookieName: cfg.SessionCookieName,
		MaxAge:     time.Duration(cfg.SessionMaxAgeSec) * time.Second,
		Secure:     cfg.SessionCookieSecure,
		SameSite:   session.ParseSameSite(cfg.SameSite()),
		Domain:     cfg.SessionCookieDomain,
		Path:       cfg.SessionCookiePath,
	})
	if err != nil {
		log.Fatalf("creating session manager: %v", err)
	}

	// --- Google sign-in ---
	creds := &auth.Resolver{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		SecretsFile:  cfg.OAuthSecretsFile,
		KeysDir:      cfg.KeysDir,
	}
	creds.Watch(ctx)

	flow := &auth.Flow{
		Credentials: creds,
		RedirectURI: cfg.RedirectURI(),
		Scopes:      cfg.Scopes(),
	}

	// --- Speech backends ---
	speechConfig := map[string]string{
		"api_key":   cfg.GoogleAPIKey,
		"stt_model": cfg.GoogleSTTModel,
		"max_chars": fmt.Sprintf("%d", cfg.TTSMaxChars),
	}

	stt, err := registry.STT.Open(cfg.STTBackend, speechConfig)
	if err != nil {
		log.Fatalf("opening %q speech-to-text backend: %v", cfg.STTBackend, err)
	}
	tts, err := registry.TTS.Open(cfg.TTSBackend, speechConfig)
	if err != nil {
		log.Fatalf("opening %q text-to-speech backend: %v", cfg.TTSBackend, err)
	}
	translator, err := registry.Translator.Open(cfg.TranslateBackend, map[string]string{
		"key":      cfg.MSTranslatorKey,
		"region":   cfg.MSTranslatorRegion,
		"endpoint": cfg.MSTranslatorBaseURL,
	})
	if err != nil {
		log.Fatalf("opening %q translator backend: %v", cfg.TranslateBackend, err)
	}

	// --- Language map ---
	langs := langmap.New()
	if cfg.LangMapFile != "" {
		if err := langs.LoadFile(cfg.LangMapFile); err != nil {
			log.Printf("warning: loading language map: %v", err)
		}
	}

	kiosk := handler.New(handler.Options{
		Config:     &cfg,
		Flow:       flow,
		Sessions:   sessions,
		Users:      repo,
		STT:        stt,
		TTS:        tts,
		Translator: translator,
		Langs:      langs,
		Pool:       pool,
		Publisher:  pub,
	})

	srv.Init(ctx,
		frame.WithHTTPHandler(kiosk.Routes()),
	)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
