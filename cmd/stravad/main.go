// Command stravad runs the Strava dashboard sync daemon: it ingests widget
// configurations over HTTP, keeps the local activity, segment and record
// caches in sync with the Strava API and pushes display-ready payloads to
// connected dashboard clients over a websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"strava-dash/internal/cache"
	"strava-dash/internal/config"
	"strava-dash/internal/httpapi"
	"strava-dash/internal/notify"
	"strava-dash/internal/strava"
	engine "strava-dash/internal/sync"
	"strava-dash/internal/token"
)

func main() {
	// A .env file is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(cfg.Logging)

	store := token.Open(filepath.Join(cfg.DataDir, "tokens.json"))
	snaps := cache.NewSnapshots(cfg.DataDir, log)
	bus := notify.NewBus()
	hub := notify.NewHub(bus, log)

	baseURL := fmt.Sprintf("http://%s:%d", redirectHost(cfg.Server.Host), cfg.Server.Port)
	orch := engine.NewOrchestrator(connector(store, baseURL), snaps, bus, log)

	api := httpapi.NewHandler(store, baseURL, func(w config.Widget) error {
		return orch.Configure(context.Background(), w)
	}, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/", api.Routes())
	r.HandleFunc("/ws", hub.ServeHTTP)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("data_dir", cfg.DataDir).Msg("stravad listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	orch.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

// connector builds the per-widget gateway. Widgets carrying the deprecated
// access_token override get a non-refreshing static credential; everyone
// else goes through the persisted OAuth tokens.
func connector(store *token.Store, baseURL string) engine.ConnectFunc {
	return func(cfg config.Widget) (engine.Gateway, engine.Refresher, error) {
		if cfg.AccessToken != "" {
			src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
			return strava.NewClient(src), staticRefresher{athleteID: cfg.StravaID}, nil
		}
		oc := token.OAuthConfig(cfg.ClientID, cfg.ClientSecret, baseURL+"/strava/auth/exchange")
		src, err := token.NewSource(oc, store, cfg.ClientID)
		if err != nil {
			return nil, nil, err
		}
		return strava.NewClient(src), sourceRefresher{src: src}, nil
	}
}

type sourceRefresher struct {
	src *token.Source
}

func (r sourceRefresher) Refresh(ctx context.Context) error {
	_, err := r.src.Refresh(ctx)
	return err
}

func (r sourceRefresher) AthleteID() int64 {
	return r.src.AthleteID()
}

type staticRefresher struct {
	athleteID int64
}

func (r staticRefresher) Refresh(context.Context) error {
	return errors.New("legacy access_token override cannot be refreshed; connect the account through the OAuth flow")
}

func (r staticRefresher) AthleteID() int64 {
	return r.athleteID
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// redirectHost picks the host used in the OAuth redirect URL; a wildcard
// bind address is not reachable from a browser.
func redirectHost(host string) string {
	if host == "0.0.0.0" || host == "::" || host == "" {
		return "localhost"
	}
	return host
}
