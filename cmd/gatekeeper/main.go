package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/gatekeeper/core/auth"
	"github.com/dmitrymomot/gatekeeper/core/config"
	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/core/health"
	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/core/notify"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
	"github.com/dmitrymomot/gatekeeper/core/server"
	"github.com/dmitrymomot/gatekeeper/integration/database/pg"
	gkredis "github.com/dmitrymomot/gatekeeper/integration/database/redis"
	"github.com/dmitrymomot/gatekeeper/integration/email/postmark"
	"github.com/dmitrymomot/gatekeeper/integration/store/memstore"
	"github.com/dmitrymomot/gatekeeper/integration/store/pgstore"
	"github.com/dmitrymomot/gatekeeper/middleware"
	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimiter"
)

const googleUserInfo = "https://openidconnect.googleapis.com/v1/userinfo"

func main() {
	if err := run(); err != nil {
		slog.Error("gatekeeper failed", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
			id, ok := middleware.GetRequestID(ctx)
			return logger.RequestID(id), ok
		}),
	}
	if app.Production {
		logOpts = append(logOpts, logger.WithProduction(app.ServiceName))
	} else {
		logOpts = append(logOpts, logger.WithDevelopment(app.ServiceName))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	if err := trustProxies(app.TrustedProxies); err != nil {
		return err
	}

	var authCfg auth.Config
	if err := config.Load(&authCfg); err != nil {
		return err
	}
	var srvCfg server.Config
	if err := config.Load(&srvCfg); err != nil {
		return err
	}
	var rlCfg ratelimiter.Config
	if err := config.Load(&rlCfg); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	var checks []func(context.Context) error

	stores, closeStores, err := openStores(ctx, app, log)
	if err != nil {
		return err
	}
	defer closeStores()
	checks = append(checks, stores.checks...)

	opts := []auth.Option{
		auth.WithLogger(log),
		auth.WithGuard(stores.guard),
		auth.WithNotifier(openNotifier(app)),
	}
	fetchers := make(map[string]oauth.ProfileFetcher)
	if app.GoogleClientID != "" {
		opts = append(opts, auth.WithOAuthProvider("google", &oauth2.Config{
			ClientID:     app.GoogleClientID,
			ClientSecret: app.GoogleClientSecret,
			Endpoint:     endpoints.Google,
			RedirectURL:  app.PublicURL + "/auth/oauth/callback",
			Scopes:       []string{"openid", "email", "profile"},
		}))
		fetchers["google"] = oauth.UserInfo(googleUserInfo)
	}
	if app.OIDCClientID != "" {
		opts = append(opts, auth.WithOAuthProvider("oidc", &oauth2.Config{
			ClientID:     app.OIDCClientID,
			ClientSecret: app.OIDCClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: app.OIDCAuthURL, TokenURL: app.OIDCTokenURL},
			RedirectURL:  app.PublicURL + "/auth/oauth/callback",
			Scopes:       []string{"openid", "email", "profile"},
		}))
		fetchers["oidc"] = oauth.UserInfo(app.OIDCUserInfoURL)
	}

	svc, err := auth.New(authCfg, stores.Stores, opts...)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	if ms, ok := stores.limiter.(*ratelimiter.MemoryStore); ok {
		g.Go(ms.Run(ctx))
	}
	bucket, err := ratelimiter.NewBucket(stores.limiter, rlCfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(
		echo.WrapMiddleware(middleware.RequestID()),
		echo.WrapMiddleware(middleware.ClientIP()),
		echo.WrapMiddleware(middleware.LoggingWithLogger(log)),
		echo.WrapMiddleware(middleware.SecurityHeadersWithConfig(securityHeaders(app.Production))),
	)
	routes{
		auth:     svc,
		fetchers: fetchers,
		accounts: providerAccounts{stepUp: app.StepUpOAuth},
		limit: middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:    bucket,
			Prefix:     "stepup:",
			SetHeaders: true,
			Logger:     log,
		}),
	}.register(e, echo.WrapHandler(health.Readiness(log, checks...)))

	srv, err := server.NewFromConfig(srvCfg, server.WithLogger(log))
	if err != nil {
		return err
	}
	g.Go(srv.Run(ctx, e))

	return g.Wait()
}

// trustProxies installs the proxies whose forwarding headers name the client.
func trustProxies(proxies []string) error {
	if len(proxies) == 0 {
		return nil
	}
	res, err := clientip.NewResolver(proxies...)
	if err != nil {
		return err
	}
	clientip.SetDefault(res)
	return nil
}

func securityHeaders(production bool) middleware.SecurityHeadersConfig {
	cfg := middleware.StrictSecurity
	cfg.IsDevelopment = !production
	return cfg
}

type backends struct {
	auth.Stores
	guard   handoff.Guard
	limiter ratelimiter.Store
	checks  []func(context.Context) error
}

// openStores connects the configured persistence and replay backends. The
// returned func releases them.
func openStores(ctx context.Context, app appConfig, log *slog.Logger) (backends, func(), error) {
	var b backends
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch app.Storage {
	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return b, release, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return b, release, err
		}
		closers = append(closers, pool.Close)
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx, pool, pgstore.Migrations(), log); err != nil {
				return b, release, err
			}
		}
		st := pgstore.New(pool)
		b.Stores = auth.Stores{Sessions: st, Trust: st, Passkeys: st}
		b.checks = append(b.checks, pg.Healthcheck(pool))
	case "memory", "":
		st := memstore.New()
		b.Stores = auth.Stores{Sessions: st, Trust: st, Passkeys: st}
		log.Warn("using in-memory storage; sessions do not survive restarts")
	default:
		return b, release, fmt.Errorf("unknown storage %q", app.Storage)
	}

	var rcfg gkredis.Config
	if err := config.Load(&rcfg); err != nil {
		return b, release, err
	}
	if rcfg.ConnectionURL != "" {
		client, err := gkredis.Connect(ctx, rcfg)
		if err != nil {
			return b, release, err
		}
		closers = append(closers, func() { _ = client.Close() })
		b.guard = gkredis.NewNonceGuard(client, gkredis.WithNoncePrefix(rcfg.KeyPrefix+"nonce:"))
		b.limiter = gkredis.NewRateLimitStore(client, rcfg.KeyPrefix+"rl:")
		b.checks = append(b.checks, gkredis.Healthcheck(client))
	} else {
		guard := handoff.NewMemoryGuard()
		closers = append(closers, func() { _ = guard.Close() })
		b.guard = guard
		b.limiter = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(log))
	}

	return b, release, nil
}

func openNotifier(app appConfig) notify.Notifier {
	var n notify.Notifier = notify.NewDevNotifier(app.MailDir)
	if app.Mailer == "postmark" {
		var cfg postmark.Config
		config.MustLoad(&cfg)
		n = postmark.MustNew(cfg)
	}
	return notify.Decorate(n,
		notify.Timeout(app.NotifyTimeout),
		notify.Retry(app.NotifyAttempts, 500*time.Millisecond, 5*time.Second),
	)
}
