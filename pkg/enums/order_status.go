package enums

// OrderStatus tracks the lifecycle of a recorded purchase.
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	return o == OrderStatusConfirmed
}
