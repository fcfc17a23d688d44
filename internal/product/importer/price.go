package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parsePrice parses a price written with '.' as thousands separator and ','
// as decimal separator: "1.150.000,00" -> 1150000, "125000" -> 125000.
func parsePrice(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.TrimSpace(clean)
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}

	return d.Round(2), nil
}
