// Package httpapi exposes the daemon's HTTP surface: widget configuration
// ingest and the Strava OAuth authorization flow.
package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"strava-dash/internal/config"
	"strava-dash/internal/token"
)

// Handler serves the OAuth flow and widget configuration endpoints.
type Handler struct {
	store     *token.Store
	log       zerolog.Logger
	baseURL   string // externally reachable base, used for the OAuth redirect
	configure func(cfg config.Widget) error

	// Endpoint overrides for tests.
	authURL  string
	tokenURL string

	mu      sync.Mutex
	widgets map[string]config.Widget // by client id
	states  map[string]string        // OAuth state nonce -> client id
}

// NewHandler creates the HTTP handler. configure is invoked with every
// ingested widget configuration and again after a successful token exchange.
func NewHandler(store *token.Store, baseURL string, configure func(cfg config.Widget) error, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		log:       log.With().Str("component", "httpapi").Logger(),
		baseURL:   baseURL,
		configure: configure,
		authURL:   token.AuthURL,
		tokenURL:  token.TokenURL,
		widgets:   make(map[string]config.Widget),
		states:    make(map[string]string),
	}
}

// Routes builds the chi router for the handler.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/config", h.ingestConfig)
	r.Route("/strava/auth", func(r chi.Router) {
		r.Get("/request", h.authRequest)
		r.Get("/exchange", h.authExchange)
		r.Get("/modules", h.listModules)
	})
	return r
}

// ingestConfig registers a widget configuration and starts its sync schedule.
// This is how the dashboard hands its settings to the daemon.
func (h *Handler) ingestConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Widget
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "malformed widget config: "+err.Error(), http.StatusBadRequest)
		return
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.mu.Lock()
	h.widgets[cfg.ClientID] = cfg
	h.mu.Unlock()
	h.log.Info().Str("client_id", cfg.ClientID).Msg("widget configured")

	if err := h.configure(cfg); err != nil {
		// The sync layer already notified the dashboard; the ingest itself
		// succeeded.
		h.log.Warn().Err(err).Str("client_id", cfg.ClientID).Msg("sync not started")
	}
	w.WriteHeader(http.StatusAccepted)
}

// authRequest redirects the browser to Strava's authorization page.
func (h *Handler) authRequest(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	cfg, ok := h.widget(clientID)
	if !ok {
		http.Error(w, "unknown client_id; configure the widget first", http.StatusNotFound)
		return
	}

	state, err := nonce()
	if err != nil {
		http.Error(w, "generating state", http.StatusInternalServerError)
		return
	}
	h.mu.Lock()
	h.states[state] = clientID
	h.mu.Unlock()

	url := h.oauthConfig(cfg).AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "force"))
	http.Redirect(w, r, url, http.StatusFound)
}

// authExchange is the OAuth redirect target: it trades the authorization
// code for tokens and persists them.
func (h *Handler) authExchange(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	h.mu.Lock()
	clientID, ok := h.states[state]
	delete(h.states, state)
	h.mu.Unlock()
	if !ok || code == "" {
		http.Error(w, "invalid or expired authorization state", http.StatusBadRequest)
		return
	}

	cfg, found := h.widget(clientID)
	if !found {
		http.Error(w, "widget no longer configured", http.StatusNotFound)
		return
	}

	oauthTok, err := h.oauthConfig(cfg).Exchange(r.Context(), code)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", clientID).Msg("token exchange failed")
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	tok := token.FromOAuth2(oauthTok)
	if err := h.store.Save(clientID, &tok); err != nil {
		h.log.Error().Err(err).Msg("persisting tokens")
		http.Error(w, "persisting tokens failed", http.StatusInternalServerError)
		return
	}
	h.log.Info().Str("client_id", clientID).Int64("athlete", tok.Athlete.ID).Msg("account connected")

	if err := h.configure(cfg); err != nil {
		h.log.Warn().Err(err).Msg("sync not started after exchange")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><p>Strava account connected. You can close this window.</p></body></html>")
}

// moduleInfo is one entry of the modules listing; secrets are never echoed.
type moduleInfo struct {
	ClientID   string `json:"client_id"`
	Units      string `json:"units"`
	Period     string `json:"period"`
	Authorized bool   `json:"authorized"`
}

// listModules reports the configured widgets and their authorization state.
func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	widgets := make([]config.Widget, 0, len(h.widgets))
	for _, cfg := range h.widgets {
		widgets = append(widgets, cfg)
	}
	h.mu.Unlock()

	modules := make([]moduleInfo, 0, len(widgets))
	for _, cfg := range widgets {
		_, err := h.store.Get(cfg.ClientID)
		modules = append(modules, moduleInfo{
			ClientID:   cfg.ClientID,
			Units:      cfg.Units,
			Period:     cfg.Period,
			Authorized: err == nil,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(modules); err != nil {
		h.log.Error().Err(err).Msg("encoding modules listing")
	}
}

func (h *Handler) widget(clientID string) (config.Widget, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cfg, ok := h.widgets[clientID]
	return cfg, ok
}

func (h *Handler) oauthConfig(cfg config.Widget) *oauth2.Config {
	oc := token.OAuthConfig(cfg.ClientID, cfg.ClientSecret, h.baseURL+"/strava/auth/exchange")
	oc.Endpoint = oauth2.Endpoint{AuthURL: h.authURL, TokenURL: h.tokenURL}
	return oc
}

func nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
