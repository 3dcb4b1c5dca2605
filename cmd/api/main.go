package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/goldsave/goldsave-api/internal/config"
	"github.com/goldsave/goldsave-api/internal/domain/admin"
	"github.com/goldsave/goldsave-api/internal/domain/auth"
	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/file"
	"github.com/goldsave/goldsave-api/internal/domain/goldprice"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/pricefeed"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/scheme"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/jobs"
	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/email"
	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
	"github.com/goldsave/goldsave-api/internal/pkg/logger"
	"github.com/goldsave/goldsave-api/internal/pkg/storage"
	"github.com/goldsave/goldsave-api/internal/scheduler"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})
	loc := cfg.Location()

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("timezone", loc.String()).
		Msg("Starting GoldSave API")

	db, err := database.NewPostgres(cfg.DatabaseURL, database.PoolOptions{
		MaxOpen: cfg.DBMaxOpenConns,
		MaxIdle: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer database.CloseRedis(redisClient)
	} else {
		log.Warn().Msg("REDIS_URL empty, job locks and price fan-out are local to this instance")
	}

	userJWT := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, "goldsave-user")
	adminJWT := jwt.NewService(cfg.AdminJWTSecret, cfg.AdminJWTTTL, "goldsave-admin")

	// ---------- Infrastructure ----------
	tx := database.NewTxManager(db)

	var transport email.Transport = email.LogTransport{}
	if cfg.SendGridAPIKey != "" {
		transport = email.NewSendGridClient(email.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		})
	} else {
		log.Warn().Msg("SENDGRID_API_KEY empty, emails are logged instead of sent")
	}
	mailer := email.NewService(transport)
	defer mailer.Close()

	s3, err := storage.NewS3Presigner(context.Background(), storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object storage presigner")
	}
	// keep the interfaces nil when storage is off
	var (
		presigner storage.Presigner
		objects   enrollment.ObjectChecker
	)
	if s3 != nil {
		presigner, objects = s3, s3
	}

	hub := pricefeed.NewHub(redisClient)
	go hub.Run()

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	adminRepo := admin.NewRepository(db)
	schemeRepo := scheme.NewRepository(db)
	settingRepo := setting.NewRepository(db)
	enrollmentRepo := enrollment.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	priceRepo := goldprice.NewRepository(db)
	redemptionRepo := redemption.NewRepository(db)

	// ---------- Services ----------
	authService := auth.NewService(userRepo, adminRepo, userJWT, adminJWT)
	schemeService := scheme.NewService(schemeRepo)
	settingService := setting.NewService(settingRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	enrollmentService := enrollment.NewService(tx, enrollmentRepo, userRepo, schemeService, ledgerService, mailer, objects, cfg.AppURL+"/login")
	priceService := goldprice.NewService(tx, priceRepo, settingService, enrollmentRepo, ledgerService, hub)
	redemptionService := redemption.NewService(tx, redemptionRepo, enrollmentRepo, ledgerService, settingService, priceService, mailer, loc)
	fileService := file.NewService(presigner, enrollmentService, cfg.PresignTTL)

	// ---------- Jobs ----------
	sched := scheduler.New(redisClient, loc)
	mustRegister(sched, cfg.CronRecalc, jobs.NewRecalculateJob(tx, enrollmentRepo, ledgerService, cfg.JobConcurrency))
	mustRegister(sched, cfg.CronMaturity, jobs.NewMaturityJob(tx, enrollmentRepo, redemptionRepo, mailer, loc))
	mustRegister(sched, cfg.CronAccrual, jobs.NewAccrualJob(tx, enrollmentRepo, redemptionRepo, ledgerService, settingService, cfg.JobConcurrency, loc).WhenDue())
	sched.Start()

	// ---------- Router ----------
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateRPS, cfg.LoginRateBurst, 10*time.Minute)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep(sweepCtx, loginLimiter)

	a := &api{
		userAuth:   middleware.Auth(userJWT),
		adminAuth:  adminGuard(adminJWT, adminRepo),
		loginLimit: loginLimiter.Middleware,
		health:     healthHandler(db, redisClient),

		auth:        auth.NewHandler(authService),
		users:       user.NewHandler(userRepo),
		schemes:     scheme.NewHandler(schemeService),
		settings:    setting.NewHandler(settingService),
		enrollments: enrollment.NewHandler(enrollmentService),
		ledger:      ledger.NewHandler(ledgerService, enrollmentService),
		redemptions: redemption.NewHandler(redemptionService),
		prices:      goldprice.NewHandler(priceService, loc),
		files:       file.NewHandler(fileService),
		jobs:        scheduler.NewHandler(sched),
		feed:        pricefeed.NewHandler(hub, cfg.AllowedOrigins),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sched.Stop(ctx)

	log.Info().Msg("Server exited properly")
}

func mustRegister(s *scheduler.Scheduler, spec string, job jobs.Job) {
	if err := s.Register(spec, job); err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to schedule job")
	}
}

// adminGuard accepts only live admins holding an admin-signed token.
func adminGuard(adminJWT *jwt.Service, repo admin.Repository) mw {
	authenticate := middleware.Auth(adminJWT)
	requireAdmin := middleware.RequireRole(jwt.RoleAdmin)
	active := admin.RequireActive(repo)
	return func(next http.Handler) http.Handler {
		return authenticate(requireAdmin(active(next)))
	}
}

func sweep(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}
