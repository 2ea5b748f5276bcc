// Package checkout turns a cart and a delivery location into the text
// message a seller receives on WhatsApp, and hands that message off as a
// click-to-chat link.
package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/location"
)

const (
	DefaultStorefront = "BharatMart"
	timeLayout        = "2/1/2006, 3:04:05 pm"
)

// Compiler renders checkout messages. It holds only presentation settings;
// the cart, the location and the clock are passed to Compile.
type Compiler struct {
	storefront string
	money      *MoneyFormatter
	tz         *time.Location
}

func NewCompiler(storefront string, money *MoneyFormatter, tz *time.Location) *Compiler {
	if storefront == "" {
		storefront = DefaultStorefront
	}
	if money == nil {
		money = NewMoneyFormatter(DefaultLocale)
	}
	if tz == nil {
		tz = time.Local
	}
	return &Compiler{storefront: storefront, money: money, tz: tz}
}

// Compile builds the message for items delivered to loc, stamped with now.
// loc may be nil. The output depends on nothing else.
func (c *Compiler) Compile(items []domain.LineItem, loc *domain.Location, now time.Time) string {
	lines := []string{
		c.storefront + " - Cart Checkout",
		"Delivery Address:\n" + location.FormatFullAddress(loc),
	}
	if loc != nil {
		if instructions := strings.TrimSpace(loc.DeliveryInstructions); instructions != "" {
			lines = append(lines, "Delivery Instructions: "+instructions)
		}
		if loc.IsDefaultAddress {
			lines = append(lines, "Default Address: Yes")
		} else {
			lines = append(lines, "Default Address: No")
		}
	}
	lines = append(lines,
		"Time: "+now.In(c.tz).Format(timeLayout),
		"",
		"Items:",
	)

	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s | Qty: %d | ₹%s | Subtotal: ₹%s",
			i+1, item.Title, item.Quantity, c.money.Format(item.Price), c.money.Format(item.Subtotal())))
		lines = append(lines, "   Product: /product/"+item.ProductID)
		if item.SellerID != "" {
			lines = append(lines, "   SellerId: "+item.SellerID)
		}
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total Items: %d", domain.TotalQuantity(items)),
		"Total Amount: ₹"+c.money.Format(domain.TotalAmount(items)),
	)
	return strings.Join(lines, "\n")
}
