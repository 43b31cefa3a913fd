package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"adslot-market/internal/auth"
	"adslot-market/internal/config"
	"adslot-market/internal/database"
	"adslot-market/internal/handlers"
	"adslot-market/internal/jobs"
	"adslot-market/internal/logger"
	"adslot-market/internal/metrics"
	"adslot-market/internal/notify"
	"adslot-market/internal/payments"
	"adslot-market/internal/ratelimit"
	"adslot-market/internal/repository"
	"adslot-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Connect to database
	if err := database.ConnectConfigured(cfg, zlog); err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(zlog); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	jwtManager := auth.NewJWTManager(cfg.App.JWTSecret, cfg.Access.TokenTTL)

	// Payment link issuer
	var issuer payments.Issuer = payments.UnconfiguredIssuer{}
	if cfg.Stripe.SecretKey != "" {
		issuer = payments.NewStripeIssuer(
			cfg.Stripe.SecretKey,
			cfg.Stripe.Currency,
			cfg.Stripe.PlatformFeePercent,
			cfg.Stripe.SuccessURL,
			cfg.Stripe.CancelURL,
		)
	} else {
		zlog.Warn("STRIPE_SECRET_KEY not set, proposals cannot be accepted")
	}

	// Notifications go through Redis when available, otherwise inline
	mailer := notify.NewLogMailer(zlog.Named("mailer"))
	var (
		dispatcher  notify.Dispatcher
		inline      *notify.InlineDispatcher
		throttle    services.Throttle
		asynqClient *asynq.Client
		asynqServer *asynq.Server
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		asynqClient = asynq.NewClient(redisOpt)
		dispatcher = notify.NewAsynqDispatcher(asynqClient, zlog.Named("notify"))

		asynqServer = notify.NewServer(redisOpt, 5, zlog.Named("worker"))
		mux := asynq.NewServeMux()
		notify.NewWorker(mailer, zlog.Named("worker")).Register(mux)
		if err := asynqServer.Start(mux); err != nil {
			zlog.Fatal("failed to start notification worker", zap.Error(err))
		}

		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		throttle = ratelimit.NewRedisThrottle(redisClient, "adslots")
	} else {
		zlog.Warn("REDIS_ADDR not set, delivering notifications inline without resend throttling")
		inline = notify.NewInlineDispatcher(mailer, zlog.Named("notify"))
		dispatcher = inline
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())

	slotService := services.NewSlotService(repo, repo, dispatcher, m, zlog, cfg.Jobs.SweepBatchSize)
	proposalService := services.NewProposalService(
		repo,
		repo,
		issuer,
		dispatcher,
		m,
		zlog,
		cfg.App.PublicURL,
		cfg.Stripe.Timeout,
	)
	accessService := services.NewAccessService(
		repo,
		jwtManager,
		throttle,
		dispatcher,
		zlog,
		cfg.Access.CodeTTL,
		cfg.Access.CodeCooldown,
	)

	// Start slot expiration job
	expirationJob := jobs.NewSlotExpirationJob(slotService, cfg.Jobs.SweepInterval, zlog)
	go expirationJob.Start()

	// Set up Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.Server.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.Server.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(router, handlers.Handlers{
		Slots:     handlers.NewSlotHandler(slotService, zlog),
		Proposals: handlers.NewProposalHandler(proposalService, zlog),
		Access:    handlers.NewAccessHandler(accessService, zlog),
		Users:     handlers.NewUserHandler(services.NewAccountService(repo, zlog), zlog),
	}, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	expirationJob.Stop()

	// Let notifications already handed to the inline dispatcher finish
	if inline != nil {
		inline.Wait()
	}

	if asynqServer != nil {
		asynqServer.Shutdown()
	}
	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	zlog.Info("server exited")
}
