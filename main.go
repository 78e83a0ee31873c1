package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/AOSC-Dev/pakreq-web/handlers"
	"github.com/AOSC-Dev/pakreq-web/internal/config"
	"github.com/AOSC-Dev/pakreq-web/internal/db"
	"github.com/AOSC-Dev/pakreq-web/internal/oauth"
	"github.com/AOSC-Dev/pakreq-web/internal/password"
	"github.com/AOSC-Dev/pakreq-web/internal/sessions"
	"github.com/AOSC-Dev/pakreq-web/internal/tokens"
	"github.com/AOSC-Dev/pakreq-web/internal/workers"
	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
	"github.com/AOSC-Dev/pakreq-web/pkg/metrics"
	"github.com/AOSC-Dev/pakreq-web/pkg/middleware"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	store, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.ConnTimeout)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()
	logger.Infof("database connection established")

	// Redis is optional: it backs the provider key-set cache and the
	// distributed rate limiter. Without it both fall back to uncached /
	// in-memory behavior.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	var keyCache oauth.KeyCache = oauth.NopKeyCache{}
	if redisClient != nil {
		keyCache = oauth.NewRedisKeyCache(redisClient, cfg.OAuth.KeyCacheTTL)
	}
	validator := oauth.NewValidator(cfg.OAuth.JWKURL, nil, keyCache)
	flow := oauth.NewFlow(cfg.OAuth, validator)

	engine := password.NewEngine()
	sessionManager := sessions.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	issuer := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	pool := workers.NewPool(0)

	var loginLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			loginLimiter = middleware.RedisRateLimit(redisClient, cfg.RateLimit.RPS,
				cfg.RateLimit.Burst, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
		} else {
			loginLimiter = middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.New(cfg, store, engine, sessionManager, issuer, flow, pool)
	h.Register(r, loginLimiter)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("starting pakreq-web on %s", cfg.Server.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server failed: %v", err)
	}
}
