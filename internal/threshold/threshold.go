// Package threshold resolves annual carbon-credit usage thresholds per
// jurisdiction. The primary source is an external service; a static table
// keeps the carbon-credits agent working when that service is down.
package threshold

import (
	"context"
	"errors"
)

// ErrUnknownJurisdiction is returned when no threshold is known for a
// jurisdiction, including the fallback table.
var ErrUnknownJurisdiction = errors.New("no threshold for jurisdiction")

// Threshold is an annual credit-usage limit and where it came from.
type Threshold struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// Lookup resolves the annual threshold for a jurisdiction.
type Lookup interface {
	LookupThreshold(ctx context.Context, jurisdiction string) (Threshold, error)
}

// staticTable is the fallback when the external service is unavailable.
// Values are annual credit allowances per facility.
var staticTable = map[string]float64{
	"Germany":        1000,
	"France":         1100,
	"Netherlands":    950,
	"Ireland":        900,
	"United States":  1500,
	"United Kingdom": 1050,
	"Singapore":      800,
	"Japan":          1200,
}

const defaultAnnualThreshold = 1000

// StaticTable serves thresholds from the built-in table, defaulting for
// jurisdictions it has never heard of rather than failing the analysis.
type StaticTable struct{}

func (StaticTable) LookupThreshold(_ context.Context, jurisdiction string) (Threshold, error) {
	if v, ok := staticTable[jurisdiction]; ok {
		return Threshold{Value: v, Source: "static_table"}, nil
	}
	return Threshold{Value: defaultAnnualThreshold, Source: "static_default"}, nil
}

// Resolve tries the primary lookup and falls back to the static table on any
// failure. The returned Source records which path answered.
func Resolve(ctx context.Context, primary Lookup, jurisdiction string) Threshold {
	if primary != nil {
		if th, err := primary.LookupThreshold(ctx, jurisdiction); err == nil {
			return th
		}
	}
	th, _ := StaticTable{}.LookupThreshold(ctx, jurisdiction)
	return th
}
