package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/config"
	"github.com/suPer8Hu/codesensei/internal/db"
	"github.com/suPer8Hu/codesensei/internal/logger"
	"github.com/suPer8Hu/codesensei/internal/persona"
	"github.com/suPer8Hu/codesensei/internal/secret"
	"github.com/suPer8Hu/codesensei/internal/settings"
	"github.com/suPer8Hu/codesensei/internal/store/rabbitmq"
	"github.com/suPer8Hu/codesensei/internal/store/supabasestore"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogFile, cfg.IsProduction()).Named("worker")
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN, log)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}

	cipher, err := secret.New(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("encryption key", zap.Error(err))
	}
	catalog, err := persona.LoadCatalog()
	if err != nil {
		log.Fatal("persona catalog", zap.Error(err))
	}

	// credentials resolve settings -> env, same as the API
	settingsSvc := settings.NewService(settings.NewRepo(gdb), cipher, log)
	opts := []chat.Option{
		chat.WithClientResolver(chat.NewClientResolver(settingsSvc, nil, log)),
		chat.WithPersonas(persona.NewService(persona.NewRepo(gdb), catalog)),
		chat.WithContextWindow(cfg.ChatContextWindowSize),
	}
	if cfg.MessageStore == "supabase" {
		store, err := supabasestore.New(supabasestore.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
		if err != nil {
			log.Fatal("supabase message store", zap.Error(err))
		}
		opts = append(opts, chat.WithMessageStore(store))
	}
	svc := chat.NewService(chat.NewRepo(gdb), log, opts...)

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, cfg.WorkerConcurrency, rabbitmq.RetryPolicy{
		MaxAttempts: cfg.WorkerMaxAttempts,
		Delay:       cfg.WorkerRetryDelay,
	}, log)
	if err != nil {
		log.Fatal("rabbitmq", zap.Error(err))
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = consumer.Run(ctx, func(ctx context.Context, jobID string, last bool) error {
		msgID, err := svc.CompleteJob(ctx, jobID, last)
		if err != nil {
			if chat.Transient(err) {
				return rabbitmq.Retry(err)
			}
			return err
		}
		log.Debug("job done", zap.String("job_id", jobID), zap.String("message_id", msgID))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
