package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "course_outreach"

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Outreach runs by mode and result",
	}, []string{"mode", "status"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of one outreach run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	DispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatches_total",
		Help:      "Evaluated enrollments by milestone family and outcome",
	}, []string{"family", "outcome"})

	StuckStudentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stuck_students_total",
		Help:      "Students found at the end of an escalation",
	}, []string{"family"})

	MailSendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_send_duration_seconds",
		Help:      "SMTP delivery latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
)

// MustRegister registers every collector of this package.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		RunsTotal,
		RunDuration,
		DispatchesTotal,
		StuckStudentsTotal,
		MailSendDuration,
	)
}

// ObserveMailSend records one delivery attempt.
func ObserveMailSend(start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MailSendDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// NewRouter serves /metrics and a liveness probe.
func NewRouter(gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// StartServer runs the metrics server until ctx is cancelled.
func StartServer(ctx context.Context, logger *logrus.Entry, addr string, gatherer prometheus.Gatherer) {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(gatherer),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.WithField("addr", addr).Info("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics: server stopped")
		}
		cancel()
	}()
}
