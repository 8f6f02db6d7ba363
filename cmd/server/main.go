package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/config"
	"github.com/suPer8Hu/codesensei/internal/db"
	"github.com/suPer8Hu/codesensei/internal/growth"
	"github.com/suPer8Hu/codesensei/internal/httpapi"
	"github.com/suPer8Hu/codesensei/internal/httpapi/handlers"
	"github.com/suPer8Hu/codesensei/internal/interview"
	"github.com/suPer8Hu/codesensei/internal/logger"
	"github.com/suPer8Hu/codesensei/internal/nav"
	"github.com/suPer8Hu/codesensei/internal/persona"
	"github.com/suPer8Hu/codesensei/internal/plan"
	"github.com/suPer8Hu/codesensei/internal/ratelimit"
	"github.com/suPer8Hu/codesensei/internal/secret"
	"github.com/suPer8Hu/codesensei/internal/settings"
	"github.com/suPer8Hu/codesensei/internal/store/rabbitmq"
	"github.com/suPer8Hu/codesensei/internal/store/supabasestore"
	"github.com/suPer8Hu/codesensei/internal/user"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogFile, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		if cfg.EncryptionKey == "" {
			log.Fatal("ENCRYPTION_KEY is required in production")
		}
	}

	gdb, err := db.Connect(cfg.DBDSN, log)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	cipher, err := secret.New(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("encryption key", zap.Error(err))
	}
	if !cipher.Enabled() {
		log.Warn("ENCRYPTION_KEY not set, provider keys are stored in plain text")
	}
	catalog, err := persona.LoadCatalog()
	if err != nil {
		log.Fatal("persona catalog", zap.Error(err))
	}

	settingsSvc := settings.NewService(settings.NewRepo(gdb), cipher, log)
	personaSvc := persona.NewService(persona.NewRepo(gdb), catalog)
	resolver := chat.NewClientResolver(settingsSvc, nil, log)

	opts := []chat.Option{
		chat.WithClientResolver(resolver),
		chat.WithPersonas(personaSvc),
		chat.WithContextWindow(cfg.ChatContextWindowSize),
		chat.WithRelayConfig(chat.RelayConfig{
			Timeout:   cfg.ChatStreamTimeout,
			Heartbeat: cfg.ChatStreamHeartbeat,
		}),
	}
	if cfg.MessageStore == "supabase" {
		store, err := supabasestore.New(supabasestore.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
		if err != nil {
			log.Fatal("supabase message store", zap.Error(err))
		}
		opts = append(opts, chat.WithMessageStore(store))
	}
	// queued chat is optional; without a broker /chat/jobs answers 503
	if pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Warn("rabbitmq unavailable, queued chat disabled", zap.Error(err))
	} else {
		defer pub.Close()
		opts = append(opts, chat.WithPublisher(pub))
	}
	chatSvc := chat.NewService(chat.NewRepo(gdb), log, opts...)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, cfg.ChatRateLimit, time.Minute)
	} else {
		limiter = ratelimit.NewMemory(cfg.ChatRateLimit, time.Minute)
	}

	h := &handlers.Handler{
		UserSvc:      user.NewService(gdb, cfg.JWTSecret, cfg.JWTTTL),
		ChatSvc:      chatSvc,
		SettingsSvc:  settingsSvc,
		PersonaSvc:   personaSvc,
		PlanSvc:      plan.NewService(plan.NewRepo(gdb), resolver, log),
		InterviewSvc: interview.NewService(interview.NewRepo(gdb), resolver, log),
		NavSvc:       nav.NewService(gdb),
		GrowthSvc:    growth.NewService(gdb, log.Named("growth")),
		Log:          log,
	}
	r, err := httpapi.NewRouter(h, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:        limiter,
		Log:            log,
	})
	if err != nil {
		log.Fatal("router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
