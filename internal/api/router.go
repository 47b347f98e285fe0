package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"crypto-pos-gateway/internal/gateway"
	"crypto-pos-gateway/internal/storage"
)

var validate = validator.New()

// Options configures the HTTP router.
type Options struct {
	Gateway *gateway.Gateway
	Coins   storage.CoinStore
	Auth    *AuthService
	Logger  *zap.Logger
}

// Server exposes the payment API over HTTP.
type Server struct {
	gateway *gateway.Gateway
	coins   storage.CoinStore
	auth    *AuthService
	logger  *zap.Logger
}

// NewServer creates a Server from the given options.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		gateway: opts.Gateway,
		coins:   opts.Coins,
		auth:    opts.Auth,
		logger:  logger,
	}
}

// Router builds the chi handler with all public and admin routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/coins", s.handleListCoins)

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create", s.handleCreatePayment)
			r.Get("/status/{paymentID}", s.handlePaymentStatus)
		})

		if s.auth != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/login", s.handleAdminLogin)

				r.Group(func(r chi.Router) {
					r.Use(s.auth.Middleware)
					r.Get("/coins", s.handleAdminListCoins)
					r.Post("/coins", s.handleAdminCreateCoin)
					r.Put("/coins/{coinID}", s.handleAdminUpdateCoin)
					r.Put("/coins/{coinID}/enabled", s.handleAdminSetEnabled)
				})
			})
		}
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
