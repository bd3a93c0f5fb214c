// Package pipeline drives one order from raw platform record to a written
// shipping decision: dims resolution, platform rates, carrier quotes,
// champion selection, write-back, and the tag bookkeeping around failures.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shipops/rate-shopper/internal/dims"
	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/metrics"
	"github.com/shipops/rate-shopper/internal/rateengine"
	"github.com/shipops/rate-shopper/internal/shipstation"
)

// Platform is the slice of the order-platform client the pipeline needs.
type Platform interface {
	Account() string
	GetRates(ctx context.Context, order *entities.Order) error
	UpdateOrder(ctx context.Context, payload shipstation.UpdateOrderPayload) error
	AddTag(ctx context.Context, orderID, tagID int64) error
}

// Rater is one carrier client. A nil rate with nil error means the carrier
// is not applicable to the order; an error means the carrier API failed
// and the order should be retried.
type Rater interface {
	BestRate(ctx context.Context, order *entities.Order) (*entities.WinningRate, error)
}

// Stage is the resume point for the second pass. Failures keep their
// already-fetched state, so a retry only repeats the part that failed.
type Stage int

const (
	StageFull Stage = iota
	StageRates
	StageWrite
)

// StageFor maps a failure reason to the stage the retry resumes from.
func StageFor(reason entities.FailureReason) Stage {
	switch reason {
	case entities.ReasonNoUPSRate, entities.ReasonNoUSPSRate, entities.ReasonNoFedexRate:
		return StageRates
	case entities.ReasonShippingNotSet:
		return StageWrite
	default:
		return StageFull
	}
}

type Processor struct {
	platform Platform
	ups      Rater
	usps     Rater
	fedex    Rater
	logger   *slog.Logger
}

func NewProcessor(logger *slog.Logger, platform Platform, ups, usps, fedex Rater) *Processor {
	return &Processor{
		platform: platform,
		ups:      ups,
		usps:     usps,
		fedex:    fedex,
		logger:   logger.With(slog.String("component", "pipeline")),
	}
}

// Process runs an order through the pipeline from the given stage.
func (p *Processor) Process(ctx context.Context, order *entities.Order, from Stage) entities.ProcessResult {
	if from <= StageFull {
		if res := p.initialize(ctx, order); res.Outcome != entities.OutcomeUpdated {
			return res
		}
	}
	if from <= StageRates {
		if res := p.selectWinner(ctx, order); res.Outcome != entities.OutcomeUpdated {
			return res
		}
	}
	return p.writeBack(ctx, order)
}

// initialize makes the order rateable: box sizing for multi-unit orders,
// then the platform's own rate lists for every carrier.
func (p *Processor) initialize(ctx context.Context, order *entities.Order) entities.ProcessResult {
	if order.IsMultiOrder || order.IsDoubleOrder {
		if !p.resolveDims(order) {
			p.tag(ctx, order, entities.ReasonNoDims)
			return entities.Skipped()
		}
	}

	if order.DeliverBy.IsZero() {
		return entities.Retry(entities.ReasonNoDeliveryDate)
	}

	if err := p.platform.GetRates(ctx, order); err != nil {
		p.logger.Warn("platform rates failed",
			slog.Int64("order_id", order.ID), slog.Any("error", err))
		return entities.Retry(entities.ReasonNoPlatformRate)
	}
	if len(order.Rates) == 0 {
		return entities.Retry(entities.ReasonNoPlatformRate)
	}
	return entities.Updated()
}

func (p *Processor) resolveDims(order *entities.Order) bool {
	resolver, err := dims.ForStore(order.StoreName)
	if err != nil {
		p.logger.Error("no sizing strategy", slog.String("store", order.StoreName))
		return false
	}
	box, ok := resolver.Resolve(order.Shipment.Items)
	if !ok {
		return false
	}
	order.Shipment.Dimensions = entities.Dimensions{
		Length: box.Length,
		Width:  box.Width,
		Height: box.Height,
		Units:  "inches",
	}
	order.Shipment.Weight = entities.Weight{Value: box.WeightOz, Units: "ounces"}
	return true
}

// selectWinner quotes every carrier in parallel and picks the champion.
// PO-box destinations are deliverable by the postal carrier only.
func (p *Processor) selectWinner(ctx context.Context, order *entities.Order) entities.ProcessResult {
	if order.Customer.IsPOBox() {
		winner, err := p.quote(ctx, "usps", p.usps, order)
		if err != nil {
			return entities.Retry(entities.ReasonNoUSPSRate)
		}
		if winner == nil {
			return entities.Retry(entities.ReasonNoUSPSRate)
		}
		order.WinningRate = winner
		return entities.Updated()
	}

	var upsBest, uspsBest, fedexBest *entities.WinningRate
	var upsErr, uspsErr, fedexErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		upsBest, upsErr = p.quote(gctx, "ups", p.ups, order)
		return nil
	})
	g.Go(func() error {
		uspsBest, uspsErr = p.quote(gctx, "usps", p.usps, order)
		return nil
	})
	g.Go(func() error {
		fedexBest, fedexErr = p.quote(gctx, "fedex", p.fedex, order)
		return nil
	})
	g.Wait()

	switch {
	case upsErr != nil:
		return entities.Retry(entities.ReasonNoUPSRate)
	case uspsErr != nil:
		return entities.Retry(entities.ReasonNoUSPSRate)
	case fedexErr != nil:
		return entities.Retry(entities.ReasonNoFedexRate)
	}

	var candidates []entities.WinningRate
	for _, best := range []*entities.WinningRate{upsBest, uspsBest, fedexBest} {
		if best != nil {
			candidates = append(candidates, *best)
		}
	}
	champion, ok := rateengine.Champion(order.WarehouseID, candidates)
	if !ok {
		p.logger.Warn("no qualifying rate from any carrier", slog.Int64("order_id", order.ID))
		return entities.Retry(entities.ReasonShippingNotSet)
	}
	order.WinningRate = &champion
	return entities.Updated()
}

func (p *Processor) quote(ctx context.Context, carrier string, rater Rater, order *entities.Order) (*entities.WinningRate, error) {
	start := time.Now()
	winner, err := rater.BestRate(ctx, order)
	metrics.ObserveQuoteDuration(carrier, time.Since(start))
	if err != nil {
		metrics.CarrierQuoteFailed(carrier)
		p.logger.Warn("carrier quote failed",
			slog.String("carrier", carrier), slog.Int64("order_id", order.ID), slog.Any("error", err))
		return nil, err
	}
	return winner, nil
}

// writeBack posts the decision and tags the order ready for the packers.
func (p *Processor) writeBack(ctx context.Context, order *entities.Order) entities.ProcessResult {
	if order.WinningRate == nil {
		return entities.Retry(entities.ReasonShippingNotSet)
	}

	payload := buildUpdatePayload(order)
	if err := p.platform.UpdateOrder(ctx, payload); err != nil {
		p.logger.Warn("order update failed",
			slog.Int64("order_id", order.ID), slog.Any("error", err))
		return entities.Retry(entities.ReasonShippingNotSet)
	}

	p.tag(ctx, order, entities.ReasonReady)
	price, _ := order.WinningRate.Price.Float64()
	metrics.ObserveChampionPrice(price)
	p.logger.Info("shipping set",
		slog.Int64("order_id", order.ID),
		slog.String("carrier", order.WinningRate.CarrierCode),
		slog.String("service", order.WinningRate.ServiceName),
		slog.String("price", order.WinningRate.Price.StringFixed(2)))
	return entities.Updated()
}

// tag applies a state tag, logging but not failing when the tag id is
// unknown or the call errors. Tagging is bookkeeping for the front end, a
// missed tag must not change the order's outcome.
func (p *Processor) tag(ctx context.Context, order *entities.Order, reason entities.FailureReason) {
	id, ok := entities.TagID(order.StoreName, reason)
	if !ok {
		p.logger.Error("no tag id for reason",
			slog.String("store", order.StoreName), slog.String("reason", string(reason)))
		return
	}
	if err := p.platform.AddTag(ctx, order.ID, id); err != nil {
		p.logger.Warn("failed to tag order",
			slog.Int64("order_id", order.ID), slog.String("reason", string(reason)), slog.Any("error", err))
	}
}
