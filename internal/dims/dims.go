// Package dims derives aggregate weight and dimensions for multi-item
// orders from per-SKU lookup tables. Two independently maintained tables
// exist with different encoding schemes, one per platform account; they
// share a calling convention but are intentionally not unified.
package dims

import (
	"fmt"

	"github.com/shipops/rate-shopper/internal/entities"
)

// Box is the packed size of one unit of one product, in inches and ounces.
type Box struct {
	Length   float64 `yaml:"l"`
	Width    float64 `yaml:"w"`
	Height   float64 `yaml:"h"`
	WeightOz float64 `yaml:"oz"`
}

// Resolver derives one aggregate box from an order's line items. The bool
// is false when any item's size code is unmapped, an expected condition
// handled by tagging rather than an error.
type Resolver interface {
	Resolve(items []entities.LineItem) (Box, bool)
}

// ForStore selects the sizing strategy for a platform account.
func ForStore(store string) (Resolver, error) {
	switch store {
	case "lentics":
		return locationCodeResolver{}, nil
	case "nuveau":
		return skuPrefixResolver{}, nil
	default:
		return nil, fmt.Errorf("dims: no sizing strategy for store %q", store)
	}
}

// aggregate stacks boxes: weight and height sum, length and width come
// from the single box with the largest footprint (length + width).
func aggregate(boxes []Box) Box {
	var total Box
	for i, b := range boxes {
		total.Height += b.Height
		total.WeightOz += b.WeightOz
		if i == 0 || b.Length+b.Width > total.Length+total.Width {
			total.Length = b.Length
			total.Width = b.Width
		}
	}
	return total
}

// expand appends one box per unit of the item.
func expand(boxes []Box, box Box, quantity int) []Box {
	for i := 0; i < quantity; i++ {
		boxes = append(boxes, box)
	}
	return boxes
}
