package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "serendipity"

// Registry holds every collector this service exposes on /metrics.
var Registry = prometheus.NewRegistry()

// AppInfo is always 1; the build is described by its labels.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date", "store"},
)

// AuthAttempts counts signup and login outcomes.
// action: signup|login, result: success|conflict|invalid|error
var AuthAttempts = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Signup and login attempts by outcome",
	},
	[]string{"action", "result"},
)

// RSVPOperations counts membership changes.
// action: join|leave, result: success|already_member|not_member|full|not_found|contention|error
var RSVPOperations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rsvp_operations_total",
		Help:      "Event join and leave operations by outcome",
	},
	[]string{"action", "result"},
)

var EventsCreated = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_created_total",
		Help:      "Total number of events created",
	},
)

// StoreUp is 1 when the last readiness ping succeeded.
var StoreUp = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_up",
		Help:      "Whether the backing store answered the last readiness check (1=up, 0=down)",
	},
)

var initOnce sync.Once

// Init registers runtime collectors and publishes build info. Safe to call
// more than once; only the first call registers collectors.
func Init(version, commit, buildDate, store string) {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, buildDate, store).Set(1)
}
