package dims

import (
	"strings"

	"gopkg.in/yaml.v3"

	_ "embed"

	"github.com/shipops/rate-shopper/internal/entities"
)

//go:embed location_tables.yaml
var locationTablesYAML []byte

// The warehouse-location field is repurposed upstream to carry a size
// code: "ST | 2024" marks a Stallion product (code after the prefix),
// anything else is a house product with the code after the pipe.
var locationTables struct {
	Stallion map[string]Box `yaml:"stallion"`
	House    map[string]Box `yaml:"house"`
}

func init() {
	if err := yaml.Unmarshal(locationTablesYAML, &locationTables); err != nil {
		panic("dims: invalid location_tables.yaml: " + err.Error())
	}
}

// locationCodeResolver sizes boxes from the warehouse-location code. Used
// for the "lentics" account.
type locationCodeResolver struct{}

func (locationCodeResolver) Resolve(items []entities.LineItem) (Box, bool) {
	var boxes []Box
	for _, item := range items {
		box, ok := lookupLocation(item.WarehouseLocation)
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

func lookupLocation(location string) (Box, bool) {
	if strings.HasPrefix(location, "ST") {
		if len(location) < 6 {
			return Box{}, false
		}
		box, ok := locationTables.Stallion[location[5:]]
		return box, ok
	}

	idx := strings.Index(location, "|")
	if idx < 0 || idx+2 > len(location) {
		return Box{}, false
	}
	box, ok := locationTables.House[location[idx+2:]]
	return box, ok
}
