package dims

import (
	"strings"

	"gopkg.in/yaml.v3"

	_ "embed"

	"github.com/shipops/rate-shopper/internal/entities"
)

//go:embed sku_tables.yaml
var skuTablesYAML []byte

var skuTables struct {
	// Prefixes maps the two-character SKU prefix to the packed size.
	Prefixes map[string]Box `yaml:"prefixes"`
	// BillyBass and FreshStool are full-SKU allowlists for products whose
	// SKUs do not follow the prefix scheme.
	BillyBass  []string `yaml:"billy_bass"`
	FreshStool []string `yaml:"fresh_stool"`
}

var (
	billyBassSKUs  map[string]bool
	freshStoolSKUs map[string]bool
)

func init() {
	if err := yaml.Unmarshal(skuTablesYAML, &skuTables); err != nil {
		panic("dims: invalid sku_tables.yaml: " + err.Error())
	}
	billyBassSKUs = make(map[string]bool, len(skuTables.BillyBass))
	for _, sku := range skuTables.BillyBass {
		billyBassSKUs[sku] = true
	}
	freshStoolSKUs = make(map[string]bool, len(skuTables.FreshStool))
	for _, sku := range skuTables.FreshStool {
		freshStoolSKUs[sku] = true
	}
}

// skuPrefixResolver sizes boxes from the SKU prefix table. Used for the
// "nuveau" account.
type skuPrefixResolver struct{}

func (skuPrefixResolver) Resolve(items []entities.LineItem) (Box, bool) {
	var boxes []Box
	for _, item := range items {
		box, ok := lookupSKU(item.SKU)
		if !ok {
			return Box{}, false
		}
		boxes = expand(boxes, box, item.Quantity)
	}
	if len(boxes) == 0 {
		return Box{}, false
	}
	return aggregate(boxes), true
}

// IsBillyBass reports whether a SKU belongs to the billy-bass allowlist.
// These products carry a height override for postal rating.
func IsBillyBass(sku string) bool {
	return billyBassSKUs[sku]
}

func lookupSKU(sku string) (Box, bool) {
	if billyBassSKUs[sku] {
		return skuTables.Prefixes["BB"], true
	}
	if freshStoolSKUs[sku] {
		box := skuTables.Prefixes["FS"]
		// SKUs bundling gel packs carry a "+" and add a pound.
		if strings.Contains(sku, "+") {
			box.WeightOz += 16
		}
		return box, true
	}
	if len(sku) < 2 {
		return Box{}, false
	}
	box, ok := skuTables.Prefixes[sku[:2]]
	return box, ok
}
