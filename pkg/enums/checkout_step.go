package enums

import "fmt"

// CheckoutStep is the position of a buyer inside the checkout flow.
type CheckoutStep int

const (
	CheckoutStepPersonalData CheckoutStep = iota + 1
	CheckoutStepPayment
	CheckoutStepConfirmation
	CheckoutStepCompleted
)

var checkoutStepNames = map[CheckoutStep]string{
	CheckoutStepPersonalData: "personal_data",
	CheckoutStepPayment:      "payment",
	CheckoutStepConfirmation: "confirmation",
	CheckoutStepCompleted:    "completed",
}

// String implements fmt.Stringer.
func (c CheckoutStep) String() string {
	if name, ok := checkoutStepNames[c]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(c))
}

// IsValid reports whether the value is a known CheckoutStep.
func (c CheckoutStep) IsValid() bool {
	_, ok := checkoutStepNames[c]
	return ok
}

// ParseCheckoutStep accepts either the step name or its number.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for step, name := range checkoutStepNames {
		if name == value || fmt.Sprint(int(step)) == value {
			return step, nil
		}
	}
	return 0, fmt.Errorf("invalid checkout step %q", value)
}
