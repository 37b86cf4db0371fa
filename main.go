package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/api"
	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/config"
	"github.com/hanksha/field-booking-realtime/hub"
	"github.com/hanksha/field-booking-realtime/logging"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/hanksha/field-booking-realtime/realtime"
	"github.com/hanksha/field-booking-realtime/relay"
	"github.com/hanksha/field-booking-realtime/source"
	"github.com/hanksha/field-booking-realtime/view"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	log := logger.With(zap.String("component", "main"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// SNAPSHOT SOURCES

	var (
		snapshots     view.Source
		finder        api.BookingFinder
		notifications realtime.NotificationSource
		flusher       realtime.CacheFlusher
	)

	if cfg.BookingAPIURL != "" {
		client := source.NewAPIClient(cfg.BookingAPIURL, cfg.BookingAPIToken,
			source.WithHTTPClient(&http.Client{Timeout: cfg.SnapshotTimeout}),
			source.WithSnapshotTTL(cfg.SnapshotTTL),
		)
		snapshots, finder, notifications, flusher = client, client, client, client
	}

	if cfg.DatabaseURL != "" {
		log.Info("connecting to PostgreSQL database")
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return err
		}

		repo := bk.NewRepository(pool)
		snapshots, finder = repo, repo
	}

	// CORE

	store := notification.NewStore(cfg.NotificationCap, cfg.NotificationDedupWindow, logger)
	views := view.NewReconciler(snapshots, logger)

	opts := []realtime.Option{
		realtime.WithMetrics(realtime.NewMetrics(reg)),
		realtime.WithSyncTimeout(cfg.SnapshotTimeout),
	}
	if notifications != nil {
		opts = append(opts, realtime.WithNotificationSource(notifications))
	}
	if flusher != nil {
		opts = append(opts, realtime.WithCacheFlusher(flusher))
	}
	svc := realtime.NewService(store, views, logger, opts...)

	hubCfg := hub.DefaultConfig()
	hubCfg.HeartbeatInterval = cfg.HeartbeatInterval
	hubCfg.MaxMissedHeartbeats = cfg.MaxMissedHeartbeats
	hubCfg.SendBuffer = cfg.SendBuffer
	hubCfg.RelayTimeout = cfg.RelayTimeout
	hubCfg.CheckOrigin = originChecker(cfg.AllowedOrigins)

	hubOpts := []hub.Option{
		hub.WithHandler(svc),
		hub.WithTopicGuard(realtime.Guard),
		hub.WithMetrics(hub.NewMetrics(reg)),
	}

	if cfg.RedisAddr != "" {
		r, err := relay.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel, logger)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		hubOpts = append(hubOpts, hub.WithRelay(r))
	}

	h := hub.New(hubCfg, logger, hubOpts...)
	svc.SetListener(realtime.NewHubPresenter(h, logger))

	// HTTP

	r := gin.New()
	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		AllowCredentials: !slices.Contains(cfg.AllowedOrigins, "*"),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api.NewWSHandler(h, logger).Register(r.Group(""))

	v1 := r.Group("/api/v1")
	api.NewNotificationHandler(svc).Register(v1.Group("/notifications"))
	api.NewLifecycleHandler(bk.NewValidator(loc), finder).Register(v1.Group("/lifecycle"))
	api.NewEventsHandler(svc).Register(v1.Group("/events"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return h.Run(gctx)
	})

	if cfg.RabbitURL != "" {
		consumer := source.NewConsumer(source.ConsumerConfig{
			URL:         cfg.RabbitURL,
			Exchange:    cfg.RabbitExchange,
			Queue:       cfg.RabbitQueue,
			Bindings:    cfg.RabbitBindings,
			Prefetch:    cfg.RabbitPrefetch,
			DLXName:     cfg.RabbitDLX,
			ConsumerTag: "realtime",
		}, logger)

		g.Go(func() error {
			return consumer.Serve(gctx, svc)
		})
	} else {
		log.Info("RABBIT_URL not set, events arrive through the webhook only")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		h.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
