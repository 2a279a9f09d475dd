// Package metrics — Prometheus-метрики клиента барража и ретранслятора.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/EgorLis/dybarrage/internal/barrage"
)

// Config — настройки коллектора.
type Config struct {
	// Namespace метрик (по умолчанию "dybarrage").
	Namespace string

	// ConstLabels добавляются ко всем метрикам (например, room).
	ConstLabels prometheus.Labels

	// Registry, куда регистрируются метрики. По умолчанию новый реестр,
	// чтобы несколько коллекторов (тесты) не конфликтовали.
	Registry *prometheus.Registry
}

type Option func(*Config)

func WithNamespace(ns string) Option {
	return func(c *Config) { c.Namespace = ns }
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

func WithRegistry(r *prometheus.Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// Collector реализует barrage.Observer.
type Collector struct {
	registry *prometheus.Registry

	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	framesDropped  *prometheus.CounterVec
	chatMessages   prometheus.Counter
	state          *prometheus.GaugeVec
	subscribers    prometheus.Gauge
}

var _ barrage.Observer = (*Collector)(nil)

func New(opts ...Option) *Collector {
	cfg := Config{Namespace: "dybarrage"}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	c := &Collector{
		registry: cfg.Registry,

		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "frames_sent_total",
			Help:        "Frames queued for the barrage server, by kind",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),

		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "frames_received_total",
			Help:        "Decoded frames received from the barrage server, by message type",
			ConstLabels: cfg.ConstLabels,
		}, []string{"type"}),

		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "frames_dropped_total",
			Help:        "Frames dropped without processing, by reason",
			ConstLabels: cfg.ConstLabels,
		}, []string{"reason"}),

		chatMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "chat_messages_total",
			Help:        "Chat messages delivered to subscribers",
			ConstLabels: cfg.ConstLabels,
		}),

		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "session_state",
			Help:        "1 for the current session state, 0 otherwise",
			ConstLabels: cfg.ConstLabels,
		}, []string{"state"}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "relay_subscribers",
			Help:        "Connected websocket relay subscribers",
			ConstLabels: cfg.ConstLabels,
		}),
	}
	for _, s := range barrage.States() {
		c.state.WithLabelValues(s.String()).Set(0)
	}
	c.state.WithLabelValues(barrage.Disconnected.String()).Set(1)
	return c
}

// Registry — реестр для /metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) StateChanged(from, to barrage.State) {
	c.state.WithLabelValues(from.String()).Set(0)
	c.state.WithLabelValues(to.String()).Set(1)
}

func (c *Collector) FrameSent(kind string)        { c.framesSent.WithLabelValues(kind).Inc() }
func (c *Collector) FrameReceived(msgType string) { c.framesReceived.WithLabelValues(label(msgType)).Inc() }
func (c *Collector) FrameDropped(reason string)   { c.framesDropped.WithLabelValues(reason).Inc() }

func (c *Collector) ChatMessage() { c.chatMessages.Inc() }

// Subscribers — хук для relay.Hub.
func (c *Collector) Subscribers(n int) { c.subscribers.Set(float64(n)) }

// label: пустой тип сообщения пишем как "none".
func label(t string) string {
	if t == "" {
		return "none"
	}
	return t
}
