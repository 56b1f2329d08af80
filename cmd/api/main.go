package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"schoolattendance/internal/account"
	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/cloudinary"
	"schoolattendance/internal/config"
	"schoolattendance/internal/handler"
	"schoolattendance/internal/httpmiddleware"
	"schoolattendance/internal/logger"
	"schoolattendance/internal/messaging"
	"schoolattendance/internal/metrics"
	"schoolattendance/internal/notify"
	"schoolattendance/internal/queue"
	"schoolattendance/internal/scheduler"
	"schoolattendance/internal/state"
	"schoolattendance/internal/store"
	"schoolattendance/internal/textgen"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	if logger.IsProduction(cfg.Env) {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		logger.Log.Fatalf("api failed: %v", err)
	}
}

func run(cfg config.App) error {
	log := logger.Component("api")
	entry := logrus.NewEntry(logger.Log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		KeyPrefix:   cfg.StoreKeyPrefix,
	})
	if err != nil {
		return err
	}
	defer backend.Close()
	log.WithField("backend", cfg.StoreBackend).Info("store opened")

	m := metrics.New(prometheus.DefaultRegisterer)

	seed, err := account.SeedUsers(bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	st, err := state.Load(ctx, backend.KV, state.Defaults{Users: seed, Config: cfg.DefaultSchool}, m)
	if err != nil {
		return err
	}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		redisClient := backend.Redis
		if redisClient == nil {
			redisClient = store.NewRedis(cfg.RedisAddr)
			defer redisClient.Client.Close()
		}
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	} else {
		q = queue.NewInMemory(256)
	}

	gen := textgen.New(cfg.TextGenURL, cfg.TextGenAPIKey, cfg.TextGenModel, cfg.TextGenTimeout, cfg.TextGenSkip)
	if cfg.TextGenSkip {
		log.Info("text generation disabled, notifications use the fallback template")
	}
	gw := notify.NewGateway(st, gen, messaging.NewWhatsApp(cfg.WhatsAppBaseURL), cfg.Location, entry, m)
	att := attendance.NewService(st, q, gw, cfg.Location, entry, m)

	cloud := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if !cloud.Enabled() {
		log.Info("cloudinary not configured, proof uploads disabled")
	}

	// the worker outlives the signal so events published by in-flight
	// requests are still drafted
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()
	worker := notify.NewWorker(q, gw, entry)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(workerCtx); err != nil {
			log.WithError(err).Error("notification worker stopped")
		}
	}()

	sched := scheduler.NewRecapScheduler(cfg.RecapCronSpec, st, cfg.Location, m, entry)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	checks := map[string]handler.Check{}
	if backend.Redis != nil {
		checks["redis"] = backend.Redis.Healthy
	}
	if backend.DB != nil {
		checks["db"] = func(ctx context.Context) bool { return backend.DB.Client.PingContext(ctx) == nil }
	}

	signer := auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	h := handler.New(handler.Deps{
		State:      st,
		Accounts:   account.NewService(st),
		Attendance: att,
		Gateway:    gw,
		Summarizer: gen,
		Cloud:      cloud,
		Signer:     signer,
		Location:   cfg.Location,
		Log:        entry,
		Checks:     checks,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    logger.Log.Writer(),
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", "Warning"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin*2, httpmiddleware.ClientIP).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	perUser := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, func(c *gin.Context) string {
		if claims, ok := auth.ClaimsFrom(c); ok {
			return "user:" + claims.UserID()
		}
		return httpmiddleware.ClientIP(c)
	})
	h.Register(r, perUser.Middleware())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server...")
	case err := <-errCh:
		stopWorker()
		<-workerDone
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced shutdown")
	}
	stopWorker()
	<-workerDone
	log.Info("server exited")
	return nil
}
