package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/auth"
	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
	"github.com/Pawankshetri11/payoutclickmain-sub001/database"
	"github.com/Pawankshetri11/payoutclickmain-sub001/handlers"
	"github.com/Pawankshetri11/payoutclickmain-sub001/logging"
	"github.com/Pawankshetri11/payoutclickmain-sub001/middleware"
	"github.com/Pawankshetri11/payoutclickmain-sub001/notify"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using system environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.IsRelease(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newDispatcher(cfg config.NotifyConfig, logger *zap.Logger) (*notify.Dispatcher, error) {
	d := notify.NewDispatcher(cfg.QueueSize, cfg.Timeout, logger)
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChatID)
		if err != nil {
			return nil, err
		}
		d.AddAdmin(tg)
		logger.Info("telegram admin notices enabled")
	}
	if cfg.EmailEnabled() {
		d.AddUser(notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom))
		logger.Info("email notices enabled", zap.String("smtp_host", cfg.SMTPHost))
	}
	return d, nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := database.Migrate(ctx, pool, cfg.Referral.NotifyChannel, logger); err != nil {
		return err
	}

	store := database.NewStore(pool)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := store.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("admin account created", zap.String("email", cfg.AdminEmail))
		}
	}

	hub := referral.NewHub()
	opts := []referral.Option{
		referral.WithHub(hub),
		referral.WithLogger(logger.Named("referral")),
		referral.WithProfileRetry(cfg.Referral.ProfileRetries, cfg.Referral.ProfileRetryDelay),
		referral.WithNewProfileWindow(cfg.Referral.NewProfileWindow),
	}
	dispatcher, err := newDispatcher(cfg.Notify, logger.Named("notify"))
	if err != nil {
		return err
	}
	if dispatcher.Enabled() {
		opts = append(opts, referral.WithNotifier(dispatcher))
		go dispatcher.Run(ctx)
	}
	svc := referral.NewService(store, opts...)

	listener, err := database.NewListener(pool, hub, cfg.Referral.NotifyChannel, logger.Named("listener"))
	if err != nil {
		return err
	}
	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.Error("notification listener stopped", zap.Error(err))
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.Referral.ApplyRateLimit, cfg.Referral.ApplyRateWindow)
	go limiter.RunPruner(ctx, cfg.Referral.ApplyRateWindow)

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger.Named("http")))
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return err
	}
	r.Use(middleware.SetupCORS(cfg))

	h := handlers.New(handlers.Deps{
		Config:   cfg,
		Service:  svc,
		Stats:    referral.NewStatsView(svc),
		Profiles: store,
		States:   auth.NewStateSigner(cfg.Referral.StateSecret, cfg.Referral.StateTTL),
		Ping:     pool.Ping,
		Logger:   logger.Named("handlers"),
	})
	h.RegisterRoutes(r, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Open stats streams end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
