package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-forecast-store/internal/usecase"
)

// Server is the operator-facing HTTP surface: health, metrics and a small
// authenticated admin API. It never serves end users; they live in the chat.
type Server struct {
	statsUC     usecase.StatsUseCase
	lifecycleUC usecase.LifecycleUseCase
	promoUC     usecase.PromoUseCase
	orderUC     usecase.OrderUseCase
	apiKey      string
	log         *zerolog.Logger
}

func NewServer(
	statsUC usecase.StatsUseCase,
	lifecycleUC usecase.LifecycleUseCase,
	promoUC usecase.PromoUseCase,
	orderUC usecase.OrderUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		statsUC:     statsUC,
		lifecycleUC: lifecycleUC,
		promoUC:     promoUC,
		orderUC:     orderUC,
		apiKey:      apiKey,
		log:         logger,
	}
}

// Router builds the chi router. Health and metrics are open; everything
// under /api/v1 requires the admin bearer key.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/stats", s.handleStats)
		r.Get("/users/{userID}", s.handleGetUser)
		r.Post("/users/{userID}/force-idle", s.handleForceIdle)
		r.Get("/promo/{code}", s.handleGetPromo)
		r.Post("/orders/paid", s.handleCreatePaidOrder)
	})

	return r
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
