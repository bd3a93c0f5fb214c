// Package rateengine implements the rate-selection policy shared by all
// carriers: deadline filtering, the pay-up-to-$0.35-to-arrive-earlier
// tie-break, the ground-saver veto, and the cross-carrier champion pick.
package rateengine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shipops/rate-shopper/internal/entities"
)

// Business constants. The two thresholds are deliberately different and
// must not be unified: $0.35 is the general premium cap, $0.30 is the
// ground-saver veto used by the aggregator only.
var (
	premiumCap = decimal.NewFromFloat(0.35)
	saverVeto  = decimal.NewFromFloat(0.30)
)

type config struct {
	saverService string
}

type Option func(*config)

// WithGroundSaverVeto enables the aggregator-only veto: a winner whose
// service name matches the synthesized ground-saver is discarded when
// promoting it saves less than $0.30 against the next real option.
func WithGroundSaverVeto(serviceName string) Option {
	return func(c *config) { c.saverService = serviceName }
}

// BestOption picks one winning quote from a carrier's options:
//
//  1. options delivering after deliverBy (or with no commitment) are out;
//  2. the cheapest remaining option wins, unless an option arriving
//     strictly earlier costs less than $0.35 more; then the earliest such
//     option wins.
//
// Returns false when nothing qualifies.
func BestOption(options []entities.ShippingOption, deliverBy time.Time, opts ...Option) (entities.ShippingOption, bool) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	qualified := make([]entities.ShippingOption, 0, len(options))
	for _, o := range options {
		if o.DeliveryDate == nil || o.DeliveryDate.After(deliverBy) {
			continue
		}
		qualified = append(qualified, o)
	}
	if len(qualified) == 0 {
		return entities.ShippingOption{}, false
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Price.Cmp(qualified[j].Price) < 0
	})
	cheapest := qualified[0]

	winner := cheapest
	if earlier, ok := bestEarlier(qualified, cheapest); ok {
		winner = earlier
	}

	if cfg.saverService != "" && winner.ServiceName == cfg.saverService {
		winner = applySaverVeto(qualified, winner, cfg.saverService)
	}
	return winner, true
}

// bestEarlier finds the earliest-arriving option that beats the cheapest
// option's delivery date at a premium under the cap. The stable price sort
// makes ties deterministic.
func bestEarlier(sorted []entities.ShippingOption, cheapest entities.ShippingOption) (entities.ShippingOption, bool) {
	var best entities.ShippingOption
	found := false
	for _, o := range sorted {
		if o.Price.Sub(cheapest.Price).Cmp(premiumCap) >= 0 {
			continue
		}
		if !o.DeliveryDate.Before(*cheapest.DeliveryDate) {
			continue
		}
		if !found || o.DeliveryDate.Before(*best.DeliveryDate) {
			best = o
			found = true
		}
	}
	return best, found
}

// applySaverVeto falls through to the next non-saver option when the saver
// is not actually saving at least $0.30.
func applySaverVeto(sorted []entities.ShippingOption, winner entities.ShippingOption, saverService string) entities.ShippingOption {
	for _, o := range sorted {
		if o.ServiceName == saverService {
			continue
		}
		if o.Price.Sub(winner.Price).Cmp(saverVeto) < 0 {
			return o
		}
		break
	}
	return winner
}
