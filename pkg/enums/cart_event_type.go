package enums

// CartEventType names the mutation that produced a ledger change notification.
type CartEventType string

const (
	CartEventItemAdded       CartEventType = "item_added"
	CartEventItemRemoved     CartEventType = "item_removed"
	CartEventQuantityUpdated CartEventType = "quantity_updated"
	CartEventCouponApplied   CartEventType = "coupon_applied"
	CartEventCouponRemoved   CartEventType = "coupon_removed"
	CartEventCleared         CartEventType = "cleared"
	CartEventCheckedOut      CartEventType = "checked_out"
)

// String implements fmt.Stringer.
func (c CartEventType) String() string {
	return string(c)
}
