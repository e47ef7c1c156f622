package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/authapi"
	"github.com/tendant/simple-auth/pkg/database"
	"github.com/tendant/simple-auth/pkg/metrics"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/ratelimit"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/verification"
)

type AuthDbConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"auth_db"`
	User     string `env:"AUTH_PG_USER" env-default:"auth"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
}

func (d AuthDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

func (d AuthDbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database)
}

type JwtConfig struct {
	// no default on purpose, a missing secret must fail at startup
	JwtSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER" env-default:"simple-auth"`
	Audience  string `env:"JWT_AUDIENCE" env-default:"simple-auth"`
}

type SmtpConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" env-default:"noreply@example.com"`
}

type VerificationConfig struct {
	// "postgres" or "memory"
	Store string `env:"VERIFICATION_STORE" env-default:"postgres"`
}

type RateLimitConfig struct {
	Enabled         bool    `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"RATE_LIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATE_LIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`
}

type Config struct {
	AuthDbConfig       AuthDbConfig
	AppConfig          app.AppConfig
	JwtConfig          JwtConfig
	SmtpConfig         SmtpConfig
	VerificationConfig VerificationConfig
	RateLimitConfig    RateLimitConfig
}

func main() {
	config := Config{}
	cleanenv.ReadEnv(&config)

	if config.JwtConfig.JwtSecret == "" {
		slog.Error("JWT_SECRET is not set, refusing to start")
		os.Exit(-1)
	}

	tokenGen, err := tokengenerator.NewJwtTokenGenerator(
		config.JwtConfig.JwtSecret,
		config.JwtConfig.Issuer,
		config.JwtConfig.Audience,
	)
	if err != nil {
		slog.Error("Failed creating token generator", "err", err)
		os.Exit(-1)
	}

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     config.SmtpConfig.Host,
			Port:     config.SmtpConfig.Port,
			TLS:      config.SmtpConfig.TLS,
			Username: config.SmtpConfig.Username,
			Password: config.SmtpConfig.Password,
			From:     config.SmtpConfig.From,
		}),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	var userRepo account.UserRepository
	var verificationRepo verification.VerificationRepository

	switch config.VerificationConfig.Store {
	case "memory":
		slog.Warn("Using in-memory stores, state is lost on restart")
		userRepo = account.NewInMemUserRepository()
		verificationRepo = verification.NewInMemVerificationRepository()
	default:
		dbConfig := config.AuthDbConfig.toDbConfig()
		pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(-1)
		}

		if err := database.RunMigrations(config.AuthDbConfig.toDatabaseURL()); err != nil {
			slog.Error("Failed running migrations", "err", err)
			os.Exit(-1)
		}

		userRepo = account.NewPgUserRepository(pool)
		verificationRepo = verification.NewPgVerificationRepository(pool)
	}

	verificationService := verification.NewVerificationService(
		verificationRepo,
		notificationManager,
		verification.WithUserChecker(userRepo),
	)

	accountService := account.NewAccountService(userRepo, tokenGen, verificationService)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	server := app.DefaultApp()

	server.R.Use(collector.Middleware)
	if config.RateLimitConfig.Enabled {
		rlConfig := ratelimit.DefaultConfig()
		rlConfig.PerIPCapacity = config.RateLimitConfig.PerIPCapacity
		rlConfig.PerIPRefillRate = config.RateLimitConfig.PerIPRefillRate
		rlConfig.EndpointLimits["POST /api/auth/login"] = ratelimit.EndpointLimit{
			Capacity:   10,
			RefillRate: 10.0 / 60.0,
		}
		server.R.Use(ratelimit.NewMiddleware(rlConfig).Handler)
	}

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	handler := authapi.NewHandler(verificationService, accountService, tokenGen, authapi.WithMetrics(collector))
	server.R.Route("/api/auth", handler.Routes)
	server.R.Handle("/metrics", metrics.SetupMetricsRoute(registry))

	go verificationService.RunCleanup(context.Background(), time.Minute)

	server.Run()
}
