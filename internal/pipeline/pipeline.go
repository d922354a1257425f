// Package pipeline fans inbound broker messages out to per-message workers:
// decode, audit append, station resolution, normalization, relational insert.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/satlomas/station-ingest/internal/domain"
	"github.com/satlomas/station-ingest/internal/observability"
)

// ResolveFunc looks up the identity for a station code. Implementations
// return domain.ErrUnknownStation for codes with no directory record.
type ResolveFunc func(ctx context.Context, code string) (domain.Identity, error)

// Auditor appends a decoded document to the replay buffer.
type Auditor interface {
	Append(doc domain.Document) error
}

// MeasurementWriter persists a normalized measurement, returning the row id.
type MeasurementWriter interface {
	InsertMeasurement(ctx context.Context, m domain.Measurement) (int64, error)
}

// Pipeline consumes the broker message stream and processes each message in
// its own goroutine. Messages are fully independent: no ordering is
// guaranteed across them and no failure of one may stop the stream.
type Pipeline struct {
	source     <-chan domain.RawMessage
	codeSource domain.CodeSource
	resolve    ResolveFunc
	audit      Auditor
	store      MeasurementWriter
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Pipeline over the given message source and collaborators.
func New(
	source <-chan domain.RawMessage,
	codeSource domain.CodeSource,
	resolve ResolveFunc,
	audit Auditor,
	store MeasurementWriter,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		source:     source,
		codeSource: codeSource,
		resolve:    resolve,
		audit:      audit,
		store:      store,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the pipeline has persisted at least one
// measurement, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not persisted any measurements yet")
	}
	return nil
}

// Run dispatches messages until the context is cancelled or the source
// channel closes. In-flight message work is not drained on cancellation:
// neither write is transactional across the two persistence paths, so
// abrupt termination is acceptable.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "station_code_source", p.codeSource)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case msg, ok := <-p.source:
			if !ok {
				p.logger.Info("pipeline stopping", "reason", "message source closed")
				return nil
			}
			go p.handleMessage(ctx, msg)
		}
	}
}

// handleMessage runs the full per-message flow. Every failure is isolated
// to this message: logged, counted, and dropped.
func (p *Pipeline) handleMessage(ctx context.Context, msg domain.RawMessage) {
	start := time.Now()
	p.metrics.MessagesReceived.Inc()
	defer func() {
		p.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	doc, err := domain.DecodePayload(msg.Payload)
	if err != nil {
		p.logger.Warn("failed parsing message payload", "topic", msg.Topic, "error", err)
		p.metrics.ParseErrors.Inc()
		return
	}

	// Audit before station-code extraction: the replay buffer records the
	// complete decoded document regardless of resolution outcome, and
	// payload-encoded extraction removes the "id" field from the map.
	if err := p.audit.Append(doc); err != nil {
		p.logger.Error("failed to append to audit log", "topic", msg.Topic, "error", err)
		p.metrics.AuditErrors.Inc()
	} else {
		p.metrics.AuditLines.Inc()
	}

	code, err := domain.StationCode(p.codeSource, msg, doc)
	if err != nil {
		p.logger.Warn("failed extracting station code", "topic", msg.Topic, "error", err)
		p.metrics.ParseErrors.Inc()
		return
	}

	identity, err := p.resolve(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStation) {
			p.logger.Warn("unknown station, dropping message", "topic", msg.Topic, "code", code)
		} else {
			p.logger.Error("station lookup failed", "topic", msg.Topic, "code", code, "error", err)
		}
		p.metrics.ResolveFailures.Inc()
		return
	}

	m, err := domain.NormalizeMeasurement(doc, identity)
	if err != nil {
		p.logger.Warn("failed normalizing measurement", "topic", msg.Topic, "code", code, "error", err)
		p.metrics.ParseErrors.Inc()
		return
	}

	rowID, err := p.store.InsertMeasurement(ctx, m)
	if err != nil {
		// No retry and no redelivery: the message is consumed either way.
		p.logger.Error("measurement insert failed",
			"topic", msg.Topic,
			"station_id", m.StationID,
			"error", err,
		)
		p.metrics.InsertErrors.Inc()
		return
	}

	p.metrics.MeasurementsInserted.Inc()
	p.ready.Store(true)
	p.logger.Info("measurement inserted",
		"row_id", rowID,
		"station_id", m.StationID,
		"site_id", m.SiteID,
		"datetime", m.Timestamp,
		"topic", msg.Topic,
	)
}
