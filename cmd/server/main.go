package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-api/internal/auth"
	"github.com/gdg-garage/wedding-api/internal/config"
	"github.com/gdg-garage/wedding-api/internal/database"
	"github.com/gdg-garage/wedding-api/internal/handlers"
	"github.com/gdg-garage/wedding-api/internal/metrics"
	"github.com/gdg-garage/wedding-api/internal/notifier"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.LogFormat == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func main() {
	// Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to create upload directory")
	}

	// Initialize Notifiers
	var notifiers notifier.Multi
	if cfg.DiscordBotToken != "" {
		discordNotifier, err := notifier.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordNotificationsChannelID, log)
		if err != nil {
			log.Warn().Err(err).Msg("discord notifier not initialized")
		} else {
			notifiers = append(notifiers, discordNotifier)
		}
	}
	if cfg.ResendAPIKey != "" {
		notifiers = append(notifiers, notifier.NewEmailNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.CoupleEmail, cfg.CoupleNames, cfg.SiteURL))
	}
	log.Info().Int("count", len(notifiers)).Msg("notifiers configured")

	// Initialize Handlers
	m := metrics.New()
	authHandler := auth.NewAdminAuth(cfg)
	h := handlers.Handlers{
		Auth:    authHandler,
		RSVP:    handlers.NewRSVPHandler(db, notifiers, authHandler, m),
		Photo:   handlers.NewPhotoHandler(db, notifiers, authHandler, m, cfg.UploadDir, cfg.MaxUploadSize),
		Metrics: m,
	}

	r := chi.NewRouter()
	handlers.RegisterRoutes(r, cfg, log, h)

	// Start Server
	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
