package processor

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/cldeng/scp-exemption-trigger/internal/automation"
	"github.com/cldeng/scp-exemption-trigger/internal/config"
	"github.com/cldeng/scp-exemption-trigger/internal/intent"
	"github.com/cldeng/scp-exemption-trigger/internal/metrics"
	"github.com/cldeng/scp-exemption-trigger/internal/stream"
)

// Processor walks one delivered batch through normalize → extract →
// dispatch. It keeps no state between invocations.
type Processor struct {
	dispatcher *automation.Dispatcher
	cfg        *config.Config
}

func New(dispatcher *automation.Dispatcher, cfg *config.Config) *Processor {
	return &Processor{dispatcher: dispatcher, cfg: cfg}
}

// HandleBatch processes records strictly in delivery order. The first
// unrecoverable error aborts and propagates, signaling the whole
// invocation as failed so the stream's retry policy redelivers the batch;
// duplicate automations on redelivery are accepted.
func (p *Processor) HandleBatch(ctx context.Context, batch events.DynamoDBEvent) error {
	for _, raw := range batch.Records {
		slog.Info("processing record", "event_id", raw.EventID, "event_name", raw.EventName)

		rec, err := stream.Normalize(raw)
		if err != nil {
			metrics.BatchFailures.Inc()
			slog.Error("record normalization failed", "event_id", raw.EventID, "err", err)
			return err
		}
		slog.Debug("normalized record",
			"event_id", rec.EventID, "new_image", rec.NewImage, "old_image", rec.OldImage)

		req, err := intent.Extract(rec, p.cfg.AutomationAssumeRole)
		if err != nil {
			metrics.BatchFailures.Inc()
			slog.Error("intent extraction failed", "event_id", rec.EventID, "err", err)
			return err
		}
		if req == nil {
			metrics.RecordsSkipped.Inc()
			slog.Info("record skipped: no AccountId/RoleName/ExemptionTagKeys, or event was MODIFY",
				"event_id", rec.EventID)
			continue
		}

		execID, err := p.dispatcher.StartExemption(ctx, req)
		if err != nil {
			metrics.BatchFailures.Inc()
			return err
		}
		if execID != "" {
			metrics.ExemptionsDispatched.WithLabelValues("started").Inc()
			slog.Info("exemption automation started", "event_id", rec.EventID, "execution_id", execID)
		} else {
			metrics.ExemptionsDispatched.WithLabelValues("rejected").Inc()
		}

		// Cleanup follows every INSERT with a ttl, even when the exemption
		// submission was rejected for invalid parameters. Known coupling,
		// kept as observed behavior.
		if rec.EventName == stream.EventInsert {
			scheduled, err := p.dispatcher.ScheduleCleanup(ctx, rec)
			if err != nil {
				metrics.BatchFailures.Inc()
				return err
			}
			if scheduled {
				metrics.CleanupsScheduled.Inc()
				slog.Info("cleanup automation scheduled", "event_id", rec.EventID)
			}
		}

		metrics.RecordsProcessed.Inc()
	}
	return nil
}
