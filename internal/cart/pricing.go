package cart

import (
	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/pkg/enums"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/shopspring/decimal"
)

var maxPercent = decimal.NewFromInt(100)

// Pricing holds the per-order surcharge and tax rate.
type Pricing struct {
	ConvenienceFee decimal.Decimal
	TaxRate        decimal.Decimal
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// discount sums fixed coupon values with the subtotal share of the combined
// percentage (capped at 100). Percentages add; they never compound.
func discount(sub decimal.Decimal, applied []coupons.Coupon) decimal.Decimal {
	fixed := decimal.Zero
	percent := decimal.Zero
	for _, c := range applied {
		switch c.Kind {
		case enums.CouponKindFixed:
			fixed = fixed.Add(c.Value)
		case enums.CouponKindPercentage:
			percent = percent.Add(c.Value)
		}
	}
	percent = money.Clamp(percent, decimal.Zero, maxPercent)
	combined := money.Round(fixed.Add(money.Percent(sub, percent)))
	return money.Clamp(combined, decimal.Zero, sub)
}

func convenienceFee(p Pricing, applied []coupons.Coupon) decimal.Decimal {
	for _, c := range applied {
		if c.WaivesFee() {
			return decimal.Zero
		}
	}
	return p.ConvenienceFee
}

func taxes(p Pricing, sub, disc decimal.Decimal) decimal.Decimal {
	return money.NonNegative(money.Round(sub.Sub(disc).Mul(p.TaxRate)))
}

func totalQuantity(items []LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func computeTotals(p Pricing, items []LineItem, applied []coupons.Coupon) Totals {
	sub := subtotal(items)
	disc := discount(sub, applied)
	fee := convenienceFee(p, applied)
	tax := taxes(p, sub, disc)
	return Totals{
		Subtotal:       sub,
		Discount:       disc,
		ConvenienceFee: fee,
		Taxes:          tax,
		Total:          money.NonNegative(sub.Sub(disc).Add(fee).Add(tax)),
		Quantity:       totalQuantity(items),
	}
}
