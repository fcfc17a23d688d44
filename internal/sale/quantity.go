package sale

import (
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ventas/internal/product"
)

// Quantities folds a flat product id list, where repetition means quantity,
// into the requested quantity per product. The distinct ids are returned in
// first-seen order.
func Quantities(ids []int64) (map[int64]int, []int64) {
	qty := make(map[int64]int, len(ids))

	var distinct []int64

	for _, id := range ids {
		if _, seen := qty[id]; !seen {
			distinct = append(distinct, id)
		}

		qty[id]++
	}

	return qty, distinct
}

// Total is the sum of price × quantity over products, rounded half away from
// zero to two decimal places.
func Total(products []*product.Product, qty map[int64]int) decimal.Decimal {
	total := decimal.Zero

	for _, p := range products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty[p.ID]))))
	}

	return total.Round(2)
}

func itemsOf(products []*product.Product, qty map[int64]int) []Item {
	items := make([]Item, 0, len(products))

	for _, p := range products {
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty[p.ID],
		})
	}

	return items
}

// missingIDs returns the ids with no matching product, sorted.
func missingIDs(ids []int64, products []*product.Product) []int64 {
	found := make(map[int64]struct{}, len(products))
	for _, p := range products {
		found[p.ID] = struct{}{}
	}

	var missing []int64

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}

	slices.Sort(missing)

	return missing
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	return strings.Join(parts, ", ")
}
