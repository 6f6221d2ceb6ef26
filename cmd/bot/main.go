package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"stockReturnsBot/internal/config"
	"stockReturnsBot/internal/finance"
	"stockReturnsBot/internal/logger"
	"stockReturnsBot/internal/openai"
	"stockReturnsBot/internal/server"
	"stockReturnsBot/internal/storage"
	"stockReturnsBot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(l)
	if err := cfg.ValidateBot(); err != nil {
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		l.Fatal().Err(err).Msg("failed to open sqlite")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		l.Fatal().Err(err).Msg("failed to init schema")
	}
	l.Info().Str("path", cfg.DBPath).Msg("db: schema ensured (bars, fetches)")

	src := storage.NewBarCache(db, finance.NewYahooSource(l), cfg.CacheTTL, l)
	storeOpts := []finance.DataStoreOption{finance.WithWorkers(cfg.FetchWorkers)}
	var aggOpts []finance.AggregatorOption
	if cfg.WeightsSumToOne {
		aggOpts = append(aggOpts, finance.WithWeightConvention(finance.WeightsSumToOne))
	}

	deps := telegram.Deps{Source: src, StoreOpts: storeOpts, AggOpts: aggOpts}
	if cfg.OpenAIKey != "" {
		deps.Commentator = openai.NewCommentator(cfg.OpenAIKey)
	} else {
		l.Info().Msg("OPENAI_API_KEY not set, /explain disabled")
	}
	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to start telegram bot")
	}

	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       l,
		Source:    src,
		Webhook:   tg.WebhookHandler, // registers /telegram/webhook
		StoreOpts: storeOpts,
		AggOpts:   aggOpts,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("server shutdown")
	}
}
