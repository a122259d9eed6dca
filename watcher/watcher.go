package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/initia-labs/corerpc/client"
	"github.com/initia-labs/corerpc/metrics"
	"github.com/initia-labs/corerpc/mq"
	"github.com/initia-labs/corerpc/sentry_integration"
	"github.com/initia-labs/corerpc/types"
)

// TipPublisher receives every observed tip change.
type TipPublisher interface {
	Publish(tip mq.Message) error
}

// Watcher polls the node for its best block and reports changes.
type Watcher struct {
	client     *client.Client
	logger     *slog.Logger
	interval   time.Duration
	minVersion string
	publisher  TipPublisher

	mtx  sync.Mutex
	tip  mq.Message
	seen bool
}

type Option func(*Watcher)

// WithPublisher forwards tip changes to p.
func WithPublisher(p TipPublisher) Option {
	return func(w *Watcher) {
		w.publisher = p
	}
}

// WithMinServerVersion logs a warning when the node is older than v.
func WithMinServerVersion(v string) Option {
	return func(w *Watcher) {
		w.minVersion = v
	}
}

func New(c *client.Client, logger *slog.Logger, interval time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		client:   c,
		logger:   logger.With("component", "watcher"),
		interval: interval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tip returns the last observed tip and whether one was observed yet.
func (w *Watcher) Tip() (mq.Message, bool) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.tip, w.seen
}

// Run polls until ctx is done. Poll failures are logged and retried on the
// next tick.
func (w *Watcher) Run(ctx context.Context) error {
	defer metrics.RecoverFromPanic("watcher")

	w.checkVersion(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("failed to poll tip", slog.Any("error", err))
			sentry_integration.CaptureCurrentHubException(err, sentry.LevelWarning)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) checkVersion(ctx context.Context) {
	version, err := w.client.Version(ctx)
	if err != nil {
		w.logger.Warn("failed to get server version", slog.Any("error", err))
		return
	}
	metrics.GetMetrics().Watch.ServerVersion.Set(float64(version))

	if w.minVersion != "" && !version.AtLeast(w.minVersion) {
		w.logger.Warn("server is older than the minimum supported version",
			slog.String("server_version", version.Semver()),
			slog.String("min_version", w.minVersion))
	}
}

// Poll fetches the current tip once and reports whether it changed.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	watchMetrics := metrics.GetMetrics().Watch

	info, err := w.client.GetBlockchainInfo(ctx)
	if err != nil {
		watchMetrics.PollsTotal.WithLabelValues("error").Inc()
		metrics.TrackError("watcher", string(types.ErrorTypeOf(err)))
		return false, err
	}
	watchMetrics.PollsTotal.WithLabelValues("ok").Inc()

	next := mq.Message{Chain: info.Chain, Height: info.Blocks, Hash: info.BestBlockHash}

	w.mtx.Lock()
	changed := !w.seen || w.tip != next
	w.tip = next
	w.seen = true
	w.mtx.Unlock()

	if !changed {
		return false, nil
	}

	watchMetrics.TipChanges.Inc()
	watchMetrics.TipHeight.Set(float64(next.Height))
	w.logger.Info("new tip",
		slog.String("chain", next.Chain),
		slog.Uint64("height", next.Height),
		slog.String("hash", next.Hash))

	if w.publisher != nil {
		if err := w.publisher.Publish(next); err != nil {
			watchMetrics.PublishedTotal.WithLabelValues("error").Inc()
			w.logger.Error("failed to publish tip", slog.Uint64("height", next.Height), slog.Any("error", err))
			return true, err
		}
		watchMetrics.PublishedTotal.WithLabelValues("ok").Inc()
	}
	return true, nil
}
