// cmd/web/main.go
//
// Intake – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback) and install a stderr
//     boot logger so config problems surface before the file logger exists.
//
//  2. Connect to Vault when VAULT_ADDR is set; config values written as
//     `vault:<path>#<key>` resolve through it.
//
//  3. Load and validate configuration, then start the daily rotating logger
//     (tees to console when running in a TTY or when log.tee is set).
//
//  4. Open the optional GeoIP database and the CRM MySQL pool.
//
//  5. Build the form collaborators: CRM repository, cached picklists,
//     geocoder (when an API key is configured), and the region catalog.
//
//  6. Build the session store, start its evictor, and register the apply
//     component.
//
//  7. Router: request id → real ip → recoverer → request info → security
//     headers → HTTPS redirect → components.  /metrics is served alongside.
//
//  8. Serve until SIGINT/SIGTERM, then drain with a 10 s deadline.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/intake/components/apply"
	"github.com/yanizio/intake/internal/component"
	"github.com/yanizio/intake/internal/config"
	"github.com/yanizio/intake/internal/crm"
	"github.com/yanizio/intake/internal/database"
	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/geocode"
	"github.com/yanizio/intake/internal/logger"
	"github.com/yanizio/intake/internal/message"
	"github.com/yanizio/intake/internal/middleware"
	"github.com/yanizio/intake/internal/picklist"
	"github.com/yanizio/intake/internal/requestinfo"
	"github.com/yanizio/intake/internal/server"
	"github.com/yanizio/intake/internal/session"
	"github.com/yanizio/intake/internal/vault"
)

const serverEnvPath = "/usr/local/etc/intake/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("boot logger: %v", err)
	}
	zap.ReplaceGlobals(boot)

	//
	// ── 1.  Secrets + config ────────────────────────────────────────────
	//
	var secrets config.SecretSource
	if vault.Configured() {
		vc, err := vault.New(ctx, boot.Sugar().Named("vault"))
		if err != nil {
			boot.Sugar().Fatalw("vault client", "err", err)
		}
		secrets = vc
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		boot.Sugar().Fatalw("load config", "err", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, cfg.Log.Tee || runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  GeoIP + database ────────────────────────────────────────────
	//
	if cfg.GeoIP.Path != "" {
		if err := requestinfo.InitGeo(resolve(cfg.Paths.Root, cfg.GeoIP.Path)); err != nil {
			logOut.Warnw("geoip disabled", "path", cfg.GeoIP.Path, "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	logOut.Infow("connecting to CRM database")
	db, err := database.OpenWithOptions(ctx, cfg.Database.ConnString(), cfg.Database.MaxOpen, cfg.Database.MaxIdle)
	if err != nil {
		logOut.Fatalw("connect CRM database", "err", err)
	}
	defer db.Close()
	logOut.Infow("CRM database online")

	//
	// ── 3.  Form collaborators ──────────────────────────────────────────
	//
	repo := crm.New(db)
	picklists := picklist.New(repo, cfg.Form.PicklistTTL)

	caps := cfg.Form.Capabilities
	var geocoder form.Geocoder
	if caps.Coordinates {
		gc, err := geocode.New(geocode.Options{
			BaseURL:  cfg.Geocoder.BaseURL,
			APIKey:   cfg.Geocoder.APIKey,
			RetryMax: cfg.Geocoder.RetryMax,
			Timeout:  cfg.Geocoder.Timeout,
		})
		switch {
		case errors.Is(err, geocode.ErrNoAPIKey):
			logOut.Warnw("geocoder has no api key; coordinates stay empty")
		case err != nil:
			logOut.Fatalw("geocoder", "err", err)
		default:
			geocoder = gc
		}
	}

	catalog := form.DefaultRegionCatalog()
	if cfg.Form.RegionFile != "" {
		catalog, err = form.LoadRegionCatalog(resolve(cfg.Paths.Root, cfg.Form.RegionFile))
		if err != nil {
			logOut.Fatalw("region catalog", "err", err)
		}
	}
	logOut.Infow("region catalog loaded", "states", len(catalog.States()))

	tokens, err := form.NewTokens([]byte(cfg.Form.CSRFKey), 0)
	if err != nil {
		logOut.Fatalw("csrf tokens", "err", err)
	}
	if cfg.Form.CSRFKey == "" {
		logOut.Warnw("form.csrf_key not set; tokens will not survive a restart")
	}

	//
	// ── 4.  Sessions + components ───────────────────────────────────────
	//
	sessions := session.New(func(n message.Notifier) *form.Controller {
		return form.NewController(catalog, caps, form.Deps{
			Leads:     repo,
			Picklists: picklists,
			Geocoder:  geocoder,
			Records:   repo,
			Notifier:  n,
		})
	}, session.Options{
		IdleTTL:      cfg.Session.IdleTTL,
		MaxEntries:   cfg.Session.MaxEntries,
		SecureCookie: cfg.HTTP.ForceHTTPS,
	})
	go sessions.Run(ctx)

	component.Register(apply.New(sessions, tokens, catalog))

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(requestinfo.Enrich, middleware.Security, middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Handle("/metrics", promhttp.Handler())
	component.MountAll(r)

	srv := server.New(cfg.HTTP.ListenAddr, r, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	//
	// ── 6.  Serve + graceful shutdown ───────────────────────────────────
	//
	errc := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "force_https", cfg.HTTP.ForceHTTPS)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logOut.Errorw("http server", "err", err)
		}
	case <-ctx.Done():
		logOut.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Errorw("shutdown", "err", err)
	}
}

// resolve anchors a relative path at the install root.
func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
