package pipeline

import (
	"io"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/shipstation"
)

type fakePlatform struct {
	account string

	rates    map[string][]entities.RateQuote
	ratesErr error

	updateErr error
	updates   []shipstation.UpdateOrderPayload
	tags      []int64
}

func (f *fakePlatform) Account() string { return f.account }

func (f *fakePlatform) GetRates(ctx context.Context, order *entities.Order) error {
	if f.ratesErr != nil {
		return f.ratesErr
	}
	order.Rates = f.rates
	return nil
}

func (f *fakePlatform) UpdateOrder(ctx context.Context, payload shipstation.UpdateOrderPayload) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, payload)
	return nil
}

func (f *fakePlatform) AddTag(ctx context.Context, orderID, tagID int64) error {
	f.tags = append(f.tags, tagID)
	return nil
}

type fakeRater struct {
	rate  *entities.WinningRate
	err   error
	calls int
}

func (f *fakeRater) BestRate(ctx context.Context, order *entities.Order) (*entities.WinningRate, error) {
	f.calls++
	return f.rate, f.err
}

func winning(carrier string, price float64) *entities.WinningRate {
	return &entities.WinningRate{
		CarrierCode: carrier,
		ServiceName: carrier + " service",
		Price:       decimal.NewFromFloat(price),
	}
}

func pipelineOrder() *entities.Order {
	return &entities.Order{
		ID:          1001,
		Key:         "key-1001",
		Number:      "N-1001",
		StoreName:   "nuveau",
		WarehouseID: 486100,
		DeliverBy:   time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC),
		ShipDate:    "2026-03-04",
		Shipment: entities.Shipment{
			Items:      []entities.LineItem{{SKU: "F1-0042", Quantity: 1}},
			RawItems:   []entities.LineItem{{SKU: "F1-0042", Quantity: 1}},
			Dimensions: entities.Dimensions{Length: 22, Width: 15, Height: 1.5, Units: "inches"},
			Weight:     entities.Weight{Value: 40, Units: "ounces"},
		},
		Customer: entities.Customer{
			ShipTo: entities.Address{Street1: "12 Elm St", State: "OH", PostalCode: "45402", Country: "US"},
		},
	}
}

func platformRates() map[string][]entities.RateQuote {
	return map[string][]entities.RateQuote{
		entities.CarrierUPS: {{ServiceName: "UPS® Ground", Price: decimal.NewFromFloat(8.40)}},
	}
}

func newTestProcessor(platform *fakePlatform, ups, usps, fedex Rater) *Processor {
	return NewProcessor(slog.New(slog.NewTextHandler(io.Discard, nil)), platform, ups, usps, fedex)
}

func TestStageFor(t *testing.T) {
	assert.Equal(t, StageRates, StageFor(entities.ReasonNoUPSRate))
	assert.Equal(t, StageRates, StageFor(entities.ReasonNoUSPSRate))
	assert.Equal(t, StageRates, StageFor(entities.ReasonNoFedexRate))
	assert.Equal(t, StageWrite, StageFor(entities.ReasonShippingNotSet))
	assert.Equal(t, StageFull, StageFor(entities.ReasonNoPlatformRate))
	assert.Equal(t, StageFull, StageFor(entities.ReasonNoDeliveryDate))
}

func TestProcessHappyPath(t *testing.T) {
	platform := &fakePlatform{account: "nuveau", rates: platformRates()}
	ups := &fakeRater{rate: winning(entities.CarrierUPSWalleted, 7.20)}
	usps := &fakeRater{rate: winning(entities.CarrierUSPS, 7.90)}
	fedex := &fakeRater{rate: winning(entities.CarrierFedEx, 8.10)}
	p := newTestProcessor(platform, ups, usps, fedex)

	order := pipelineOrder()
	result := p.Process(context.Background(), order, StageFull)

	require.Equal(t, entities.OutcomeUpdated, result.Outcome)
	require.NotNil(t, order.WinningRate)
	assert.Equal(t, entities.CarrierUPSWalleted, order.WinningRate.CarrierCode)

	require.Len(t, platform.updates, 1)
	assert.Equal(t, 1, ups.calls)
	assert.Equal(t, 1, usps.calls)
	assert.Equal(t, 1, fedex.calls)

	readyID, _ := entities.TagID("nuveau", entities.ReasonReady)
	assert.Contains(t, platform.tags, readyID)
}

func TestProcessMultiOrderWithoutDimsIsSkipped(t *testing.T) {
	platform := &fakePlatform{account: "nuveau", rates: platformRates()}
	p := newTestProcessor(platform, &fakeRater{}, &fakeRater{}, &fakeRater{})

	order := pipelineOrder()
	order.IsMultiOrder = true
	order.Shipment.Items = []entities.LineItem{
		{SKU: "ZZ-unmapped", Quantity: 1},
		{SKU: "F1-0042", Quantity: 1},
	}

	result := p.Process(context.Background(), order, StageFull)
	assert.Equal(t, entities.OutcomeSkipped, result.Outcome)

	noDimsID, _ := entities.TagID("nuveau", entities.ReasonNoDims)
	assert.Contains(t, platform.tags, noDimsID)
	assert.Empty(t, platform.updates)
}

func TestProcessMultiOrderResolvesDims(t *testing.T) {
	platform := &fakePlatform{account: "nuveau", rates: platformRates()}
	ups := &fakeRater{rate: winning(entities.CarrierUPS, 8.40)}
	p := newTestProcessor(platform, ups, &fakeRater{}, &fakeRater{})

	order := pipelineOrder()
	order.IsMultiOrder = true
	order.Shipment.Items = []entities.LineItem{
		{SKU: "F1-0042", Quantity: 1},
		{SKU: "P1-0001", Quantity: 1},
	}
	order.Shipment.Dimensions = entities.Dimensions{}
	order.Shipment.Weight = entities.Weight{}

	result := p.Process(context.Background(), order, StageFull)
	require.Equal(t, entities.OutcomeUpdated, result.Outcome)
	assert.True(t, order.Shipment.HasDims())
	assert.Equal(t, "ounces", order.Shipment.Weight.Units)
	assert.InDelta(t, 48, order.Shipment.Weight.Value, 0.001)
}

func TestProcessRetryReasons(t *testing.T) {
	apiErr := errors.New("api down")

	testCases := []struct {
		name       string
		setup      func(*fakePlatform, *fakeRater, *fakeRater, *fakeRater, *entities.Order)
		wantReason entities.FailureReason
	}{
		{
			name: "missing deliver-by",
			setup: func(_ *fakePlatform, _, _, _ *fakeRater, o *entities.Order) {
				o.DeliverBy = time.Time{}
			},
			wantReason: entities.ReasonNoDeliveryDate,
		},
		{
			name: "platform rates call fails",
			setup: func(p *fakePlatform, _, _, _ *fakeRater, _ *entities.Order) {
				p.ratesErr = apiErr
			},
			wantReason: entities.ReasonNoPlatformRate,
		},
		{
			name: "platform lists no rates",
			setup: func(p *fakePlatform, _, _, _ *fakeRater, _ *entities.Order) {
				p.rates = nil
			},
			wantReason: entities.ReasonNoPlatformRate,
		},
		{
			name: "ups api failure",
			setup: func(_ *fakePlatform, ups, _, _ *fakeRater, _ *entities.Order) {
				ups.err = apiErr
			},
			wantReason: entities.ReasonNoUPSRate,
		},
		{
			name: "usps api failure",
			setup: func(_ *fakePlatform, _, usps, _ *fakeRater, _ *entities.Order) {
				usps.err = apiErr
			},
			wantReason: entities.ReasonNoUSPSRate,
		},
		{
			name: "fedex api failure",
			setup: func(_ *fakePlatform, _, _, fedex *fakeRater, _ *entities.Order) {
				fedex.err = apiErr
			},
			wantReason: entities.ReasonNoFedexRate,
		},
		{
			name: "no carrier produced a winner",
			setup: func(_ *fakePlatform, _, _, _ *fakeRater, _ *entities.Order) {
			},
			wantReason: entities.ReasonShippingNotSet,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			platform := &fakePlatform{account: "nuveau", rates: platformRates()}
			ups, usps, fedex := &fakeRater{}, &fakeRater{}, &fakeRater{}
			order := pipelineOrder()
			tc.setup(platform, ups, usps, fedex, order)

			p := newTestProcessor(platform, ups, usps, fedex)
			result := p.Process(context.Background(), order, StageFull)
			assert.Equal(t, entities.OutcomeRetry, result.Outcome)
			assert.Equal(t, tc.wantReason, result.Reason)
		})
	}
}

func TestProcessPOBoxUsesPostalOnly(t *testing.T) {
	platform := &fakePlatform{account: "nuveau", rates: platformRates()}
	ups := &fakeRater{rate: winning(entities.CarrierUPS, 5.00)}
	usps := &fakeRater{rate: winning(entities.CarrierUSPS, 7.90)}
	fedex := &fakeRater{rate: winning(entities.CarrierFedEx, 5.50)}
	p := newTestProcessor(platform, ups, usps, fedex)

	order := pipelineOrder()
	order.Customer.ShipTo.Street1 = "PO Box 312"

	result := p.Process(context.Background(), order, StageFull)
	require.Equal(t, entities.OutcomeUpdated, result.Outcome)
	assert.Equal(t, entities.CarrierUSPS, order.WinningRate.CarrierCode)
	assert.Equal(t, 0, ups.calls)
	assert.Equal(t, 0, fedex.calls)
}

func TestProcessPOBoxWithoutPostalRate(t *testing.T) {
	platform := &fakePlatform{account: "nuveau", rates: platformRates()}
	p := newTestProcessor(platform, &fakeRater{}, &fakeRater{}, &fakeRater{})

	order := pipelineOrder()
	order.Customer.ShipTo.Street1 = "PO BOX 9"

	result := p.Process(context.Background(), order, StageFull)
	assert.Equal(t, entities.OutcomeRetry, result.Outcome)
	assert.Equal(t, entities.ReasonNoUSPSRate, result.Reason)
}

func TestProcessStallionWarehouseExcludesFedex(t *testing.T) {
	platform := &fakePlatform{account: "lentics", rates: platformRates()}
	ups := &fakeRater{rate: winning(entities.CarrierUPS, 8.40)}
	fedex := &fakeRater{rate: winning(entities.CarrierFedEx, 5.00)}
	p := newTestProcessor(platform, ups, &fakeRater{}, fedex)

	order := pipelineOrder()
	order.StoreName = "lentics"
	order.WarehouseID = 665600

	result := p.Process(context.Background(), order, StageFull)
	require.Equal(t, entities.OutcomeUpdated, result.Outcome)
	assert.Equal(t, entities.CarrierUPS, order.WinningRate.CarrierCode)
}

func TestProcessUpdateFailureRetriesAtWriteStage(t *testing.T) {
	platform := &fakePlatform{account: "nuveau", rates: platformRates(), updateErr: errors.New("429")}
	ups := &fakeRater{rate: winning(entities.CarrierUPS, 8.40)}
	p := newTestProcessor(platform, ups, &fakeRater{}, &fakeRater{})

	order := pipelineOrder()
	result := p.Process(context.Background(), order, StageFull)
	require.Equal(t, entities.OutcomeRetry, result.Outcome)
	assert.Equal(t, entities.ReasonShippingNotSet, result.Reason)

	// Retry from the write stage reuses the already-selected winner.
	platform.updateErr = nil
	ups.calls = 0
	result = p.Process(context.Background(), order, StageFor(result.Reason))
	require.Equal(t, entities.OutcomeUpdated, result.Outcome)
	assert.Equal(t, 0, ups.calls, "write-stage retry must not re-quote carriers")
	require.Len(t, platform.updates, 1)
}

func TestProcessWriteBackIsIdempotent(t *testing.T) {
	// Re-running the write stage with the same winner must post the same
	// payload and the same ready tag, so a retry after a half-applied
	// update converges instead of drifting.
	platform := &fakePlatform{account: "nuveau", rates: platformRates()}
	ups := &fakeRater{rate: winning(entities.CarrierUPS, 8.40)}
	p := newTestProcessor(platform, ups, &fakeRater{}, &fakeRater{})

	order := pipelineOrder()
	result := p.Process(context.Background(), order, StageFull)
	require.Equal(t, entities.OutcomeUpdated, result.Outcome)

	result = p.Process(context.Background(), order, StageWrite)
	require.Equal(t, entities.OutcomeUpdated, result.Outcome)

	require.Len(t, platform.updates, 2)
	assert.Equal(t, platform.updates[0], platform.updates[1])

	readyID, ok := entities.TagID("nuveau", entities.ReasonReady)
	require.True(t, ok)
	assert.Equal(t, []int64{readyID, readyID}, platform.tags)
}
