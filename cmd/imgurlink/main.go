// Package main runs the Imgur account linking service backed by PostgreSQL,
// with browser sessions in Redis when REDIS_ADDR is set.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/social-post-imgur/pkg/account"
	"github.com/tendant/social-post-imgur/pkg/config"
	"github.com/tendant/social-post-imgur/pkg/linkage"
	"github.com/tendant/social-post-imgur/pkg/metrics"
	"github.com/tendant/social-post-imgur/pkg/notification"
	"github.com/tendant/social-post-imgur/pkg/oauthclient"
	"github.com/tendant/social-post-imgur/pkg/oauthlink"
	"github.com/tendant/social-post-imgur/pkg/oauthlink/api"
	"github.com/tendant/social-post-imgur/pkg/oauthstate"
	"github.com/tendant/social-post-imgur/pkg/poster"
	"github.com/tendant/social-post-imgur/pkg/router"
	"github.com/tendant/social-post-imgur/pkg/session"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		fmt.Fprintln(os.Stderr, config.Usage())
		os.Exit(1)
	}
	if cfg.Imgur.TokenEncryptionKey == "" {
		slog.Error("IMGUR_TOKEN_ENCRYPTION_KEY is required to store tokens in PostgreSQL")
		os.Exit(1)
	}

	ctx := context.Background()

	dbConfig := cfg.Database.ToDbConfig()
	pool, err := dbutils.NewDbPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}
	defer pool.Close()

	linkages, accounts, err := setupStorage(ctx, pool, cfg.Imgur.TokenEncryptionKey)
	if err != nil {
		slog.Error("Failed to prepare storage", "error", err)
		os.Exit(1)
	}

	sessions := setupSessions(ctx, cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	client, err := oauthclient.NewImgurClient(oauthclient.Config{
		ClientID:       cfg.Imgur.ClientID,
		ClientSecret:   cfg.Imgur.ClientSecret,
		RedirectURI:    cfg.Imgur.RedirectURI,
		Scopes:         cfg.Imgur.Scopes,
		RequestTimeout: cfg.Imgur.RequestTimeout(),
	})
	if err != nil {
		slog.Error("Failed to create Imgur client", "error", err)
		os.Exit(1)
	}

	flash := notification.NewFlashNotifier(sessions)
	notifier := notification.NewNotificationManager()
	notifier.RegisterNotifier(notification.FlashSystem, flash)
	notifier.RegisterNotifier(notification.LogSystem, notification.LogNotifier{})

	service := oauthlink.NewService(
		client,
		oauthstate.NewStore(sessions, client.Name(), oauthstate.WithTTL(cfg.Imgur.StateTTL)),
		linkages,
		account.NewSessionDirectory(sessions, accounts),
		oauthlink.WithScopes(cfg.Imgur.Scopes),
		oauthlink.WithAllowSignup(cfg.Imgur.AllowSignup),
		oauthlink.WithNotifier(notifier),
		oauthlink.WithMetrics(m),
	)
	invoker := poster.NewInvoker(linkages, client.Name(),
		poster.WithRequestTimeout(cfg.Imgur.RequestTimeout()),
		poster.WithRetryLimit(cfg.Imgur.APIRetryLimit),
		poster.WithMetrics(m),
	)

	server := app.NewApp(app.WithPort(cfg.Port))
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	cookie := session.CookieOptions{
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.TTL,
	}
	router.SetupRoutes(server.R, router.Config{
		LinkHandle: api.NewHandle(
			api.WithProvider(service, invoker),
			api.WithLinkageRepository(linkages),
			api.WithFlash(flash),
			api.WithCookieOptions(cookie),
			api.WithRedirects(cfg.Imgur.PostLoginURL, cfg.Imgur.LoginURL),
		),
		Cookie:  cookie,
		Auth:    jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil),
		Metrics: m.Handler(),
	})

	slog.Info("Imgur linking service ready",
		"port", cfg.Port,
		"redirect_uri", cfg.Imgur.RedirectURI,
		"allow_signup", cfg.Imgur.AllowSignup)
	server.Run()
}

func setupStorage(ctx context.Context, pool *pgxpool.Pool, encryptionKey string) (*linkage.PostgresRepository, *account.PostgresAccountStore, error) {
	if err := linkage.EnsureSchema(ctx, pool); err != nil {
		return nil, nil, err
	}
	accounts := account.NewPostgresAccountStore(pool)
	if err := accounts.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	linkages, err := linkage.NewPostgresRepository(pool, encryptionKey)
	if err != nil {
		return nil, nil, err
	}
	return linkages, accounts, nil
}

// setupSessions uses Redis when configured and reachable, process memory otherwise
func setupSessions(ctx context.Context, cfg config.Config) session.Store {
	if !cfg.Redis.Enabled() {
		slog.Warn("REDIS_ADDR not set, browser sessions are kept in memory and lost on restart")
		return session.NewMemoryStore(cfg.Session.TTL, 5*time.Minute)
	}

	store := session.NewRedisStore(redis.NewClient(cfg.Redis.Options()), cfg.Session.TTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		slog.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	slog.Info("Browser sessions stored in Redis", "addr", cfg.Redis.Addr)
	return store
}

// loadEnvFile loads .env from the executable directory or the working directory
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
