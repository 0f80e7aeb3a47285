// Package main runs the Imgur linking service without a database.
// Linkages, accounts and browser sessions live in memory. This is useful for:
// - Local development against a registered Imgur application
// - Trying the flow without PostgreSQL or Redis
//
// Note: All data is lost when the server stops. For production, use cmd/imgurlink.
package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

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
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory Imgur linking service (no database required)")
	slog.Info(strings.Repeat("=", 60))

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	sessions := session.NewMemoryStore(cfg.Session.TTL, time.Minute)
	linkages := linkage.NewInMemoryRepository()
	accounts := account.NewInMemoryAccountStore()
	m := metrics.NewMetrics(nil)

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
		// nobody can sign in without a database, so visitors register through Imgur
		oauthlink.WithAllowSignup(true),
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

	slog.Info(strings.Repeat("=", 60))
	slog.Info("Connect: GET /connect/imgur")
	slog.Info("Mint an API token with: go run ./cmd/tokengen -subject <user-id>")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}
