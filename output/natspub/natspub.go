// Package natspub publishes completed datasets to NATS subjects for
// downstream consumers.
package natspub

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chrisdreid/chronosynth/config"
	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/formats"
	"github.com/chrisdreid/chronosynth/metric"
	"github.com/chrisdreid/chronosynth/pkg/retry"
	"github.com/chrisdreid/chronosynth/series"
)

// Publisher errors
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
)

const drainTimeout = 30 * time.Second

// Publisher pushes structured dataset documents to a NATS subject tree.
// Each dataset goes to <subject>.<job>, so consumers can subscribe to the
// whole tree or a single job name. Publisher implements batch.Sink.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metric.Metrics
	retry   retry.Config
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetricsRegistry enables NATS publish metrics.
func WithMetricsRegistry(registry *metric.Registry) Option {
	return func(p *Publisher) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
		}
	}
}

// WithRetry overrides the publish retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(p *Publisher) { p.retry = cfg }
}

// Connect dials NATS and returns a ready publisher.
func Connect(ctx context.Context, cfg config.NATSConfig, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		subject: cfg.Subject,
		logger:  slog.Default(),
		retry:   retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.subject == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Publisher", "Connect",
			"subject is required")
	}
	if len(cfg.URLs) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Publisher", "Connect",
			"at least one server url is required")
	}

	conn, err := nats.Connect(strings.Join(cfg.URLs, ","), p.connectionOptions(cfg)...)
	if err != nil {
		return nil, errors.WrapInternal(err, "Publisher", "Connect", "establish connection")
	}
	p.conn = conn
	if p.metrics != nil {
		p.metrics.RecordNATSStatus(true)
	}
	p.logger.Info("connected to NATS", "servers", cfg.URLs, "subject", p.subject)

	// Connect above blocks, but honor an already-cancelled context
	select {
	case <-ctx.Done():
		conn.Close()
		return nil, errors.WrapInternal(ctx.Err(), "Publisher", "Connect", "connection cancelled")
	default:
	}
	return p, nil
}

// connectionOptions translates the config into nats options, with
// handlers keeping the connection gauge and reconnect counter current.
func (p *Publisher) connectionOptions(cfg config.NATSConfig) []nats.Option {
	opts := []nats.Option{
		nats.Name("chronosynth"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DrainTimeout(drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if p.metrics != nil {
				p.metrics.RecordNATSStatus(false)
			}
			p.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			if p.metrics != nil {
				p.metrics.RecordNATSStatus(true)
				p.metrics.NATSReconnects.Inc()
			}
			p.logger.Info("NATS reconnected", "server", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if p.metrics != nil {
				p.metrics.RecordNATSStatus(false)
			}
		}),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

// Publish encodes the series as a structured JSON document and publishes
// it to <subject>.<job>, retrying transient failures.
func (p *Publisher) Publish(ctx context.Context, job string, s *series.Series) error {
	if p.conn == nil {
		return errors.WrapInternal(ErrNotConnected, "Publisher", "Publish", "publish dataset")
	}

	data, err := encodeSeries(s)
	if err != nil {
		return err
	}
	subject := p.subjectFor(job)

	err = retry.Do(ctx, p.retry, func() error {
		return p.conn.Publish(subject, data)
	})
	if err != nil {
		if p.metrics != nil {
			p.metrics.NATSPublishError.Inc()
		}
		return errors.WrapInternal(err, "Publisher", "Publish",
			fmt.Sprintf("publish to %s", subject))
	}

	if p.metrics != nil {
		p.metrics.NATSPublished.Inc()
	}
	p.logger.Debug("dataset published", "subject", subject, "bytes", len(data))
	return nil
}

// Close drains the connection so queued publishes flush before shutdown.
// Drain completion is bounded by the connection's drain timeout.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return errors.WrapInternal(err, "Publisher", "Close", "drain connection")
	}
	return nil
}

// subjectFor appends the sanitized job name to the base subject.
func (p *Publisher) subjectFor(job string) string {
	token := sanitizeToken(job)
	if token == "" {
		return p.subject
	}
	return p.subject + "." + token
}

// sanitizeToken makes a string safe for use as a single NATS subject
// token: spaces become dashes, token separators and wildcards are dropped.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case r == '.' || r == '*' || r == '>':
			// skip
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// encodeSeries renders the dataset in the structured layout.
func encodeSeries(s *series.Series) ([]byte, error) {
	data, err := json.Marshal(formats.FromSeries(s))
	if err != nil {
		return nil, errors.WrapInternal(err, "Publisher", "Publish", "encode dataset")
	}
	return data, nil
}
