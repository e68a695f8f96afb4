// ==============================================================================
// MONEYPRO API - cmd/api/main.go
// ==============================================================================
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"moneypro/internal/auth"
	"moneypro/internal/commission"
	"moneypro/internal/handler"
	"moneypro/internal/investment"
	"moneypro/internal/ledger"
	"moneypro/internal/middleware"
	"moneypro/internal/referral"
	"moneypro/internal/repository/postgres"
	"moneypro/internal/scheduler"
	"moneypro/internal/settlement"
	"moneypro/internal/stats"
	"moneypro/internal/transaction"
	"moneypro/pkg/cache"
	"moneypro/pkg/config"
	"moneypro/pkg/logger"
	"moneypro/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("moneypro-api")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting moneypro API", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories
	txm := postgres.NewTxManager(db)
	accountRepo := postgres.NewAccountRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	ruleRepo := postgres.NewCommissionRuleRepository(db)
	bonusRepo := postgres.NewReferralBonusRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	investmentRepo := postgres.NewInvestmentRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Services
	ruleCache := cache.NewRedisCache(redisClient, "moneypro")
	rules := commission.NewTable(ruleRepo, ruleCache, cfg.Cache.CommissionRuleTTL, log)
	recorder := transaction.NewRecorder(txRepo, log)
	ledgerService := ledger.NewService(accountRepo, log)
	resolver := referral.NewResolver(accountRepo, rules, log)
	settlementService := settlement.NewService(txm, recorder, ledgerService, resolver, accountRepo, bonusRepo, log)
	investmentService := investment.NewService(planRepo, investmentRepo, txm, ledgerService, recorder, log)
	authService := auth.NewService(accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, log)
	referralService := referral.NewService(accountRepo, bonusRepo, cfg.Referral.BaseURL)
	statsService := stats.NewService(statsRepo, 30*time.Second)

	bootstrap(log, cfg, rules, authService)

	// HTTP
	val := validator.New()
	blacklist := middleware.NewRedisTokenBlacklist(redisClient)
	audit := middleware.NewAuditMiddleware(auditRepo, log)

	handlers := handler.Handlers{
		System: handler.NewSystemHandler(map[string]handler.Pinger{
			"database": db,
			"redis":    handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		}, log),
		Auth:         handler.NewAuthHandler(authService, blacklist, val, log),
		Transactions: handler.NewTransactionHandler(recorder, settlementService, val, log),
		Referrals:    handler.NewReferralHandler(referralService, log),
		Investments:  handler.NewInvestmentHandler(investmentService, val, log),
		Admin: handler.NewAdminHandler(handler.AdminDeps{
			Settler:      settlementService,
			Transactions: recorder,
			Accounts:     authService,
			Stats:        statsService,
			Rules:        rules,
			Plans:        investmentService,
		}, val, log),
	}

	router := handler.NewRouter(handlers, handler.Middleware{
		Global: []mux.MiddlewareFunc{
			middleware.SecurityHeaders,
			middleware.Recovery(log),
			middleware.CorrelationID,
			middleware.NewLoggingMiddleware(log).Log,
			middleware.Metrics,
			middleware.NewRateLimiter(redisClient, "global", cfg.RateLimit.GlobalPerMinute, time.Minute, log).Limit,
		},
		Authenticate: middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist, log).Authenticate,
		API: []mux.MiddlewareFunc{
			middleware.NewRateLimiter(redisClient, "api", cfg.RateLimit.APIPerMinute, time.Minute, log).Limit,
		},
		Idempotency: middleware.NewIdempotencyMiddleware(redisClient, cfg.RateLimit.IdempotencyTTL, log).Require,
		Audit:       audit.Audit,
	})

	// Background jobs
	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.NewScheduler(investmentService, cfg.Scheduler.ProfitAccrualSchedule, log)
		if err != nil {
			log.Fatal("Failed to configure scheduler", map[string]interface{}{"error": err.Error()})
		}
		jobs.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      middleware.CORS(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("moneypro API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down moneypro API...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if jobs != nil {
		jobs.Stop(ctx)
	}
	audit.Wait()

	log.Info("moneypro API stopped gracefully", nil)
}

// bootstrap seeds commission defaults and the first admin account.
func bootstrap(log logger.Logger, cfg *config.Config, rules *commission.Table, authService *auth.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rules.SeedDefaults(ctx, cfg.Referral.DefaultLevel1Percentage, cfg.Referral.DefaultLevel2Percentage); err != nil {
		log.Fatal("Failed to seed commission rules", map[string]interface{}{"error": err.Error()})
	}

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return
	}
	created, err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		log.Fatal("Failed to bootstrap admin account", map[string]interface{}{"error": err.Error()})
	}
	if created {
		log.Info("Bootstrap admin account created", map[string]interface{}{"email": cfg.Admin.Email})
	}
}
