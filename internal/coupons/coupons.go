package coupons

import (
	"sort"
	"strings"

	"github.com/angelmondragon/cinepass/pkg/enums"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/shopspring/decimal"
)

// FeeWaiverCode is the coupon that waives the convenience fee.
const FeeWaiverCode = "FRETE"

// Coupon is an immutable discount definition. Value is a percentage (0-100)
// for percentage coupons and a monetary amount for fixed ones.
type Coupon struct {
	Code        string           `json:"code"`
	Kind        enums.CouponKind `json:"kind"`
	Value       decimal.Decimal  `json:"value"`
	Description string           `json:"description"`
}

// WaivesFee reports whether the coupon removes the convenience fee.
func (c Coupon) WaivesFee() bool {
	return c.Code == FeeWaiverCode
}

// Catalog is the static set of redeemable coupons.
type Catalog struct {
	byCode map[string]Coupon
}

// Normalize upper-cases and trims a coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewCatalog indexes the given coupons by normalized code.
func NewCatalog(list []Coupon) *Catalog {
	byCode := make(map[string]Coupon, len(list))
	for _, c := range list {
		c.Code = Normalize(c.Code)
		byCode[c.Code] = c
	}
	return &Catalog{byCode: byCode}
}

// Lookup resolves a code case-insensitively.
func (c *Catalog) Lookup(code string) (Coupon, bool) {
	coupon, ok := c.byCode[Normalize(code)]
	return coupon, ok
}

// List returns every coupon ordered by code.
func (c *Catalog) List() []Coupon {
	out := make([]Coupon, 0, len(c.byCode))
	for _, coupon := range c.byCode {
		out = append(out, coupon)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Default returns the storefront coupon table.
func Default() *Catalog {
	return NewCatalog([]Coupon{
		{Code: "DESCONTO10", Kind: enums.CouponKindPercentage, Value: decimal.NewFromInt(10), Description: "10% de desconto"},
		{Code: "PRIMEIRA", Kind: enums.CouponKindPercentage, Value: decimal.NewFromInt(15), Description: "15% desconto primeira compra"},
		{Code: "ESTUDANTE", Kind: enums.CouponKindPercentage, Value: decimal.NewFromInt(20), Description: "20% desconto estudante"},
		{Code: "VIP30", Kind: enums.CouponKindFixed, Value: money.MustParse("30.00"), Description: "R$ 30 de desconto"},
		{Code: FeeWaiverCode, Kind: enums.CouponKindPercentage, Value: decimal.Zero, Description: "Taxa de conveniência grátis"},
	})
}
