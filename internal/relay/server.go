package relay

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health — ответ /healthz.
type Health struct {
	Room        string `json:"room"`
	State       string `json:"state"`
	Subscribers int    `json:"subscribers"`
	Healthy     bool   `json:"-"`
}

// NewRouter собирает HTTP-ручки ретранслятора. gatherer и health могут быть
// nil — тогда соответствующая ручка не регистрируется.
func NewRouter(hub *Hub, gatherer prometheus.Gatherer, health func() Health) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", hub.ServeHTTP)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if health != nil {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			h := health()
			w.Header().Set("Content-Type", "application/json")
			if !h.Healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(h)
		})
	}
	return r
}
