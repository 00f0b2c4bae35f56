package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// ErrNotReady is returned by Readiness before MarkReady and after MarkStopping.
var ErrNotReady = errors.New("not ready")

// Probes reports liveness and readiness for orchestrators.
type Probes struct {
	ready atomic.Bool
	check func(ctx context.Context) error
	log   *slog.Logger
}

// NewProbes creates Probes. check, when set, must pass for the process to be ready.
func NewProbes(check func(ctx context.Context) error, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{check: check, log: log}
}

// MarkReady flips readiness on once the bot is accepting updates.
func (p *Probes) MarkReady() {
	p.ready.Store(true)
	p.log.Info("process ready")
}

// MarkStopping flips readiness off at the start of shutdown.
func (p *Probes) MarkStopping() {
	p.ready.Store(false)
}

// Liveness reports whether the process is running at all.
func (p *Probes) Liveness(context.Context) error {
	return nil
}

func (p *Probes) Readiness(ctx context.Context) error {
	if !p.ready.Load() {
		return ErrNotReady
	}
	if p.check != nil {
		return p.check(ctx)
	}
	return nil
}

// LivenessHandler serves Liveness as 200 or 503.
func (p *Probes) LivenessHandler() http.Handler {
	return probeHandler(p.Liveness)
}

// ReadinessHandler serves Readiness as 200 or 503.
func (p *Probes) ReadinessHandler() http.Handler {
	return probeHandler(p.Readiness)
}

func probeHandler(probe func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
