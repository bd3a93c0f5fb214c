package rateengine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/rateengine"
)

func option(name string, price float64, delivery *time.Time) entities.ShippingOption {
	return entities.ShippingOption{
		ServiceName:  name,
		Price:        decimal.NewFromFloat(price),
		DeliveryDate: delivery,
	}
}

func day(d int) *time.Time {
	t := time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestBestOption(t *testing.T) {
	deliverBy := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		options     []entities.ShippingOption
		opts        []rateengine.Option
		wantService string
		wantOK      bool
	}{
		{
			name:   "no options",
			wantOK: false,
		},
		{
			name: "all options miss the deadline",
			options: []entities.ShippingOption{
				option("Ground", 5.00, day(12)),
				option("Saver", 4.50, day(15)),
			},
			wantOK: false,
		},
		{
			name: "options without a commitment are dropped",
			options: []entities.ShippingOption{
				option("Unknown", 1.00, nil),
				option("Ground", 5.00, day(8)),
			},
			wantService: "Ground",
			wantOK:      true,
		},
		{
			name: "cheapest wins when nothing arrives earlier",
			options: []entities.ShippingOption{
				option("Express", 25.00, day(4)),
				option("Ground", 8.00, day(8)),
			},
			wantService: "Ground",
			wantOK:      true,
		},
		{
			name: "twenty cent premium for an earlier day wins",
			options: []entities.ShippingOption{
				option("Ground", 10.00, day(8)),
				option("2Day", 10.20, day(6)),
			},
			wantService: "2Day",
			wantOK:      true,
		},
		{
			name: "forty cent premium is over the cap",
			options: []entities.ShippingOption{
				option("Ground", 10.00, day(8)),
				option("2Day", 10.40, day(6)),
			},
			wantService: "Ground",
			wantOK:      true,
		},
		{
			name: "premium exactly at the cap loses",
			options: []entities.ShippingOption{
				option("Ground", 10.00, day(8)),
				option("2Day", 10.35, day(6)),
			},
			wantService: "Ground",
			wantOK:      true,
		},
		{
			name: "earliest of several qualifying premiums wins",
			options: []entities.ShippingOption{
				option("Ground", 10.00, day(8)),
				option("3Day", 10.10, day(7)),
				option("2Day", 10.20, day(6)),
			},
			wantService: "2Day",
			wantOK:      true,
		},
		{
			name: "same day premium does not qualify",
			options: []entities.ShippingOption{
				option("Ground", 10.00, day(8)),
				option("Other", 10.10, day(8)),
			},
			wantService: "Ground",
			wantOK:      true,
		},
		{
			name: "saver veto promotes the next option when savings are small",
			options: []entities.ShippingOption{
				option("UPS Ground Saver", 9.80, day(8)),
				option("UPS Ground", 10.00, day(8)),
			},
			opts:        []rateengine.Option{rateengine.WithGroundSaverVeto("UPS Ground Saver")},
			wantService: "UPS Ground",
			wantOK:      true,
		},
		{
			name: "saver survives when it saves at least thirty cents",
			options: []entities.ShippingOption{
				option("UPS Ground Saver", 9.50, day(8)),
				option("UPS Ground", 9.80, day(8)),
			},
			opts:        []rateengine.Option{rateengine.WithGroundSaverVeto("UPS Ground Saver")},
			wantService: "UPS Ground Saver",
			wantOK:      true,
		},
		{
			name: "veto without a saver winner changes nothing",
			options: []entities.ShippingOption{
				option("UPS Ground", 9.50, day(8)),
				option("UPS 2nd Day Air", 19.00, day(6)),
			},
			opts:        []rateengine.Option{rateengine.WithGroundSaverVeto("UPS Ground Saver")},
			wantService: "UPS Ground",
			wantOK:      true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			winner, ok := rateengine.BestOption(tc.options, deliverBy, tc.opts...)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantService, winner.ServiceName)
			}
		})
	}
}

func TestBestOptionDeadlineBoundary(t *testing.T) {
	deliverBy := time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)
	onDeadline := deliverBy

	winner, ok := rateengine.BestOption([]entities.ShippingOption{
		option("Ground", 5.00, &onDeadline),
	}, deliverBy)

	require.True(t, ok, "delivery exactly on the deadline must qualify")
	assert.Equal(t, "Ground", winner.ServiceName)
}
