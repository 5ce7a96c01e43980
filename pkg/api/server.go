// Package api serves the NIP-07 provider to browser pages over HTTP and
// WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/pkg/binding"
	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
	"github.com/uhyunpark/nostr-signerd/pkg/storage"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

const (
	defaultJournalLimit = 20
	maxJournalLimit     = 500
	maxBodyBytes        = 1 << 20
)

// Provider is the NIP-07 surface; *binding.Provider implements it.
type Provider interface {
	GetPublicKey(ctx context.Context) (string, error)
	SignEvent(ctx context.Context, evt nostr.Event) (nostr.Event, error)
	GetRelays() binding.RelayMap
	State() binding.State
	ResetIdentity()
}

// Server handles REST API and WebSocket connections
type Server struct {
	provider       Provider
	journal        storage.Journal
	allowedOrigins []string
	router         *mux.Router
	hub            *Hub
	httpServer     *http.Server
	logger         *zap.SugaredLogger
}

// NewServer creates a new API server. journal may be nil.
func NewServer(provider Provider, journal storage.Journal, allowedOrigins []string, logger *zap.SugaredLogger) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	logger = util.OrNop(logger)
	s := &Server{
		provider:       provider,
		journal:        journal,
		allowedOrigins: allowedOrigins,
		router:         mux.NewRouter(),
		hub:            NewHub(logger),
		logger:         logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// NIP-07 endpoints
	api.HandleFunc("/nostr/pubkey", s.handleGetPublicKey).Methods("GET")
	api.HandleFunc("/nostr/sign", s.handleSignEvent).Methods("POST")
	api.HandleFunc("/nostr/relays", s.handleGetRelays).Methods("GET")

	// Identity endpoints
	api.HandleFunc("/identity", s.handleGetIdentity).Methods("GET")
	api.HandleFunc("/identity/reset", s.handleResetIdentity).Methods("POST")

	// Journal endpoints
	api.HandleFunc("/journal", s.handleGetJournal).Methods("GET")
	api.HandleFunc("/journal/{id}", s.handleGetJournalEntry).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler is the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start runs the WebSocket hub and serves until Shutdown.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infow("api_server_starting", "addr", addr, "origins", s.allowedOrigins)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetPublicKey(w http.ResponseWriter, r *http.Request) {
	pubkey, err := s.provider.GetPublicKey(r.Context())
	if err != nil {
		s.respondSignerError(w, "getPublicKey", err)
		return
	}
	respondJSON(w, PubKeyResponse{PubKey: pubkey})
}

func (s *Server) handleSignEvent(w http.ResponseWriter, r *http.Request) {
	var evt nostr.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&evt); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event", err.Error())
		return
	}

	signed, err := s.provider.SignEvent(r.Context(), evt)
	if err != nil {
		s.respondSignerError(w, "signEvent", err)
		return
	}
	respondJSON(w, signed)
}

func (s *Server) handleGetRelays(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.provider.GetRelays())
}

func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, IdentityStatus{State: s.provider.State().String()})
}

func (s *Server) handleResetIdentity(w http.ResponseWriter, r *http.Request) {
	s.provider.ResetIdentity()
	s.hub.Broadcast(WSNotice{Type: "identityReset"})
	respondJSON(w, IdentityStatus{State: s.provider.State().String()})
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, http.StatusNotFound, "journal disabled", "")
		return
	}

	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		s.logger.Errorw("journal_read_failed", "error", err)
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	if entries == nil {
		entries = []storage.SignedEvent{}
	}
	respondJSON(w, JournalResponse{Entries: entries})
}

func (s *Server) handleGetJournalEntry(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, http.StatusNotFound, "journal disabled", "")
		return
	}

	id := mux.Vars(r)["id"]
	rec, ok, err := s.journal.Get(id)
	if err != nil {
		s.logger.Errorw("journal_read_failed", "event_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "event not found", id)
		return
	}
	respondJSON(w, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

// statusFor maps a signing failure to the HTTP status the page sees.
func statusFor(err error) int {
	switch signerr.KindOf(err) {
	case signerr.KindFormat, signerr.KindTransport:
		return http.StatusBadGateway
	case signerr.KindCoordinator:
		return http.StatusServiceUnavailable
	case signerr.KindTaskFailed:
		return http.StatusConflict
	case signerr.KindTimeout:
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) respondSignerError(w http.ResponseWriter, method string, err error) {
	s.logger.Warnw("request_failed", "method", method, "kind", signerr.KindOf(err).String(), "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   method + " failed",
		Message: err.Error(),
		Kind:    signerr.KindOf(err).String(),
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
