// Package telemetry expone las métricas Prometheus del bot.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	RoomsCreated         prometheus.Counter
	RoomsDeleted         prometheus.Counter
	TextChannelsDeleted  prometheus.Counter
	RateLimited          *prometheus.CounterVec // label: domain (voice|text)
	BlacklistEscalations *prometheus.CounterVec // label: domain
	CommandsProcessed    *prometheus.CounterVec // label: command
	IncidentsReported    prometheus.Counter
	ManagedChannelsGauge prometheus.Gauge
	BotListPostsFailed   prometheus.Counter
)

// Init registra las métricas (idempotente).
func Init() {
	once.Do(func() {
		RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "dynvoice_rooms_created_total", Help: "Voice/text pairs created"})
		RoomsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "dynvoice_rooms_deleted_total", Help: "Managed voice channels deleted after draining"})
		TextChannelsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "dynvoice_text_channels_deleted_total", Help: "Paired text channels deleted"})
		RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{Name: "dynvoice_rate_limited_total", Help: "Actions rejected by the spam guard"}, []string{"domain"})
		BlacklistEscalations = promauto.NewCounterVec(prometheus.CounterOpts{Name: "dynvoice_blacklist_escalations_total", Help: "Users blacklisted after repeated violations"}, []string{"domain"})
		CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "dynvoice_commands_total", Help: "Prefix commands invoked"}, []string{"command"})
		IncidentsReported = promauto.NewCounter(prometheus.CounterOpts{Name: "dynvoice_incidents_total", Help: "Errors forwarded to the owner"})
		ManagedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "dynvoice_managed_channels", Help: "Channel ids currently tracked as managed"})
		BotListPostsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "dynvoice_botlist_posts_failed_total", Help: "Failed stats posts to the bot list"})
	})
}

// helpers nil-safe: los tests no llaman Init.

func RoomCreated() {
	if RoomsCreated != nil {
		RoomsCreated.Inc()
	}
}

func RoomDeleted() {
	if RoomsDeleted != nil {
		RoomsDeleted.Inc()
	}
}

func TextChannelDeleted() {
	if TextChannelsDeleted != nil {
		TextChannelsDeleted.Inc()
	}
}

func RateLimitHit(domain string) {
	if RateLimited != nil {
		RateLimited.WithLabelValues(domain).Inc()
	}
}

func Blacklisted(domain string) {
	if BlacklistEscalations != nil {
		BlacklistEscalations.WithLabelValues(domain).Inc()
	}
}

func CommandRan(name string) {
	if CommandsProcessed != nil {
		CommandsProcessed.WithLabelValues(name).Inc()
	}
}

func Incident() {
	if IncidentsReported != nil {
		IncidentsReported.Inc()
	}
}

// SetManagedChannels registra el tamaño actual del set de canales gestionados.
func SetManagedChannels(n int) {
	if ManagedChannelsGauge != nil {
		ManagedChannelsGauge.Set(float64(n))
	}
}

func BotListPostFailed() {
	if BotListPostsFailed != nil {
		BotListPostsFailed.Inc()
	}
}
