package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/metrics"
	"github.com/shipops/rate-shopper/internal/normalize"
	"github.com/shipops/rate-shopper/internal/shipstation"
)

// FetchPlatform extends Platform with the batch-level calls the runner
// makes once per pass.
type FetchPlatform interface {
	Platform
	RefreshStores(ctx context.Context)
	FetchAwaitingShipment(ctx context.Context) ([]shipstation.RawOrder, error)
}

type Normalizer interface {
	Normalize(account string, raw shipstation.RawOrder) (*entities.Order, error)
}

// Archiver persists customer data for successfully shipped orders.
type Archiver interface {
	Archive(ctx context.Context, orders []*entities.Order) error
}

// Publisher emits decision events; failures after the retry pass go to the
// dead-letter topic.
type Publisher interface {
	Decision(ctx context.Context, order *entities.Order) error
	Failure(ctx context.Context, order *entities.Order, reason entities.FailureReason) error
}

type retryItem struct {
	order  *entities.Order
	reason entities.FailureReason
}

// Runner executes one two-pass batch per account: every order gets one
// attempt, failed orders get exactly one retry resuming at the stage that
// failed, and orders failing twice are tagged with their reason and left
// for a human.
type Runner struct {
	platform  FetchPlatform
	norm      Normalizer
	processor *Processor
	archiver  Archiver
	publisher Publisher
	logger    *slog.Logger
}

func NewRunner(logger *slog.Logger, platform FetchPlatform, norm Normalizer, processor *Processor, archiver Archiver, publisher Publisher) *Runner {
	return &Runner{
		platform:  platform,
		norm:      norm,
		processor: processor,
		archiver:  archiver,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "runner"), slog.String("account", platform.Account())),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.platform.RefreshStores(ctx)

	raws, err := r.platform.FetchAwaitingShipment(ctx)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}

	var succeeded []*entities.Order
	var retries []retryItem

	for _, raw := range raws {
		order, err := r.norm.Normalize(r.platform.Account(), raw)
		if err != nil {
			if errors.Is(err, normalize.ErrSkip) {
				metrics.OrderSkipped()
				r.logger.Debug("order skipped", slog.Any("reason", err))
				continue
			}
			if entities.IsFatal(err) {
				return err
			}
			r.logger.Error("normalize failed", slog.Int64("order_id", raw.OrderID), slog.Any("error", err))
			continue
		}

		result := r.processor.Process(ctx, order, StageFull)
		switch result.Outcome {
		case entities.OutcomeUpdated:
			succeeded = append(succeeded, order)
		case entities.OutcomeSkipped:
			metrics.OrderSkipped()
		case entities.OutcomeRetry:
			metrics.OrderRetried(string(result.Reason))
			retries = append(retries, retryItem{order: order, reason: result.Reason})
		case entities.OutcomeFatal:
			return result.Err
		}
	}

	for _, item := range retries {
		r.logger.Info("retrying order",
			slog.Int64("order_id", item.order.ID), slog.String("reason", string(item.reason)))

		result := r.processor.Process(ctx, item.order, StageFor(item.reason))
		if result.Outcome == entities.OutcomeUpdated {
			succeeded = append(succeeded, item.order)
			continue
		}
		if result.Outcome == entities.OutcomeFatal {
			return result.Err
		}

		// Second failure is terminal for this batch: surface the original
		// reason as a tag and move on.
		metrics.OrderFailed(string(item.reason))
		r.failOrder(ctx, item.order, item.reason)
	}

	for _, order := range succeeded {
		metrics.OrderProcessed()
		if r.publisher != nil {
			if err := r.publisher.Decision(ctx, order); err != nil {
				r.logger.Warn("failed to publish decision",
					slog.Int64("order_id", order.ID), slog.Any("error", err))
			}
		}
	}

	if r.archiver != nil && len(succeeded) > 0 {
		if err := r.archiver.Archive(ctx, succeeded); err != nil {
			r.logger.Warn("customer archive failed", slog.Any("error", err))
		}
	}

	r.logger.Info("batch finished",
		slog.Int("fetched", len(raws)),
		slog.Int("updated", len(succeeded)),
		slog.Int("retried", len(retries)))
	return nil
}

func (r *Runner) failOrder(ctx context.Context, order *entities.Order, reason entities.FailureReason) {
	id, ok := entities.TagID(order.StoreName, reason)
	if !ok {
		r.logger.Error("no tag id for reason", slog.String("reason", string(reason)))
	} else if err := r.platform.AddTag(ctx, order.ID, id); err != nil {
		r.logger.Warn("failed to tag order",
			slog.Int64("order_id", order.ID), slog.String("reason", string(reason)), slog.Any("error", err))
	}

	if r.publisher != nil {
		if err := r.publisher.Failure(ctx, order, reason); err != nil {
			r.logger.Warn("failed to publish failure",
				slog.Int64("order_id", order.ID), slog.Any("error", err))
		}
	}
}
