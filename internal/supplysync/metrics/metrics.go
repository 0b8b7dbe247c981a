package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liquidfi/supplysync/internal/supplysync/engine"
)

// Set mirrors CycleResult into prometheus counters. Counters are the
// only externally visible error surface of the reconciler besides logs
// and the outcome topic.
type Set struct {
	EventsFetched      prometheus.Counter
	Duplicates         prometheus.Counter
	DedupCheckErrors   prometheus.Counter
	Persisted          prometheus.Counter
	PersistErrors      prometheus.Counter
	AlreadyProcessed   prometheus.Counter
	Minted             prometheus.Counter
	Burned             prometheus.Counter
	AutoVerified       prometheus.Counter
	AutoVerifyFailures prometheus.Counter
	Unsupported        prometheus.Counter
	MutationFailures   prometheus.Counter

	CycleFailures prometheus.Counter
	TicksSkipped  prometheus.Counter
	CycleDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Set {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "supplysync",
			Name:      name,
			Help:      help,
		})
	}
	return &Set{
		EventsFetched:      counter("events_fetched_total", "Trade events fetched from the ledger."),
		Duplicates:         counter("events_duplicate_total", "Events filtered as already processed."),
		DedupCheckErrors:   counter("dedup_check_errors_total", "Existence checks that failed (event kept, fail-open)."),
		Persisted:          counter("records_persisted_total", "Processed records inserted."),
		PersistErrors:      counter("persist_errors_total", "Record inserts that failed."),
		AlreadyProcessed:   counter("insert_conflicts_total", "Inserts lost to the uniqueness constraint."),
		Minted:             counter("mint_total", "Successful mints."),
		Burned:             counter("burn_total", "Successful burns."),
		AutoVerified:       counter("auto_verify_total", "Wallets auto-verified before dispatch."),
		AutoVerifyFailures: counter("auto_verify_failures_total", "Mutations abandoned after a failed auto-verify."),
		Unsupported:        counter("unsupported_ticker_total", "Events outside the supported token set."),
		MutationFailures:   counter("mutation_failures_total", "Mint/burn submissions that failed."),
		CycleFailures:      counter("cycle_failures_total", "Cycles aborted by a fetch error."),
		TicksSkipped:       counter("ticks_skipped_total", "Scheduler ticks skipped because a cycle was still running."),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "supplysync",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one reconciliation cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

func (s *Set) ObserveCycle(res engine.CycleResult) {
	s.EventsFetched.Add(float64(res.Fetched))
	s.Duplicates.Add(float64(res.Duplicates))
	s.DedupCheckErrors.Add(float64(res.DedupCheckErrors))
	s.Persisted.Add(float64(res.Persisted))
	s.PersistErrors.Add(float64(res.PersistErrors))
	s.AlreadyProcessed.Add(float64(res.AlreadyProcessed))
	s.Minted.Add(float64(res.Minted))
	s.Burned.Add(float64(res.Burned))
	s.AutoVerified.Add(float64(res.AutoVerified))
	s.AutoVerifyFailures.Add(float64(res.AutoVerifyFailures))
	s.Unsupported.Add(float64(res.Unsupported))
	s.MutationFailures.Add(float64(res.MutationFailures))
	s.CycleDuration.Observe(res.Duration.Seconds())
}

// Serve exposes /metrics and /healthz until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
