package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals travel as JSON numbers in the stored cart, the API
	// and order events.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineItem is one product entry in the cart. Title, price, image and seller
// are copied from the catalog when the item is first added and are never
// re-fetched.
type LineItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
	Image     string          `json:"image,omitempty"`
	SellerID  string          `json:"sellerId,omitempty"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FloorQuantity coerces any quantity below one up to one.
func FloorQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// CoerceQuantity converts a loosely typed quantity (as it arrives from a JSON
// body or a form field) into a quantity of at least one. Anything that is not
// a finite number is treated as one.
func CoerceQuantity(v any) int {
	switch q := v.(type) {
	case int:
		return FloorQuantity(q)
	case int32:
		return FloorQuantity(int(q))
	case int64:
		if q > math.MaxInt32 {
			return math.MaxInt32
		}
		return FloorQuantity(int(q))
	case float64:
		return floorFloat(q)
	case json.Number:
		f, err := q.Float64()
		if err != nil {
			return 1
		}
		return floorFloat(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 1
		}
		return floorFloat(f)
	default:
		return 1
	}
}

func floorFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func TotalQuantity(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func TotalAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
