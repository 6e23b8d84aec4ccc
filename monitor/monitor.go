// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/turn"
)

type Metrics struct {
	OnlineSessions   prometheus.Gauge
	ActiveContenders *prometheus.GaugeVec
	MatchesStarted   prometheus.Counter
	MatchesEnded     *prometheus.CounterVec
	Jumps            prometheus.Counter
	Turns            *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
	ModeSwitches     prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of connected sessions",
		}),
		ActiveContenders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_contenders",
			Help:      "Contenders in the running match, by arena",
		}, []string{"arena"}),
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Total number of matches started",
		}),
		MatchesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_ended_total",
			Help:      "Total number of matches ended, by outcome",
		}, []string{"outcome"}),
		Jumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jumps_total",
			Help:      "Total number of splashdowns",
		}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of turns, by result",
		}, []string{"result"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from the start of a turn to its result",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		ModeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_switches_total",
			Help:      "Times a match switched to rounds",
		}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.ActiveContenders,
		m.MatchesStarted,
		m.MatchesEnded,
		m.Jumps,
		m.Turns,
		m.TurnDuration,
		m.ModeSwitches,
	)

	return m
}

// Monitor exposes metrics and observes matches.
type Monitor struct {
	registry     *prometheus.Registry
	metrics      *Metrics
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
	publishOnce  sync.Once
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		registry:  reg,
		metrics:   NewMetrics(namespace, reg),
		startTime: time.Now(),
	}
}

// Registry returns the registry the metrics live in.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	// 添加expvar指标
	m.publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})
	mux.Handle("/debug/vars", expvar.Handler())

	go func() {
		logger.L().Infof("Metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.L().Errorf("metrics server: %v", err)
		}
	}()
}

func (m *Monitor) IncOnlineSessions() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecOnlineSessions() {
	m.metrics.OnlineSessions.Dec()
}

// IncRequests counts a packet received from a client.
func (m *Monitor) IncRequests() {
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

// --- match.Observer ---

func (m *Monitor) MatchStarted(arenaID string, contenders int) {
	m.metrics.MatchesStarted.Inc()
	m.metrics.ActiveContenders.WithLabelValues(arenaID).Set(float64(contenders))
}

func (m *Monitor) JumpLanded(arenaID string) {
	m.metrics.Jumps.Inc()
}

func (m *Monitor) TurnEnded(arenaID string, success bool, took time.Duration) {
	result := "miss"
	if success {
		result = "success"
	}
	m.metrics.Turns.WithLabelValues(result).Inc()
	m.metrics.TurnDuration.Observe(took.Seconds())
}

func (m *Monitor) ModeChanged(arenaID string, mode turn.Mode) {
	if mode == turn.Rounds {
		m.metrics.ModeSwitches.Inc()
	}
}

func (m *Monitor) MatchEnded(result match.Result) {
	m.metrics.MatchesEnded.WithLabelValues(string(result.Outcome)).Inc()
	m.metrics.ActiveContenders.WithLabelValues(result.ArenaID).Set(0)
}
