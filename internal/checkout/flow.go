package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/pkg/enums"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/validation"
)

type ledger interface {
	SessionID() string
	IsEmpty() bool
	Items() []cart.LineItem
	AppliedCoupons() []coupons.Coupon
	Totals() cart.Totals
	Checkout(ctx context.Context, payment cart.PaymentPayload) (*cart.OrderSnapshot, error)
}

// Options tunes a Flow. The zero value is usable.
type Options struct {
	Logger *logger.Logger
}

// PersonalDataInput is the first step form.
type PersonalDataInput struct {
	FullName  string `json:"full_name" validate:"notblank"`
	CPF       string `json:"cpf" validate:"notblank"`
	Email     string `json:"email" validate:"notblank"`
	Phone     string `json:"phone" validate:"notblank"`
	BirthDate string `json:"birth_date"`
}

// PaymentInput is the second step form. Card fields are only required for
// card based methods.
type PaymentInput struct {
	Method       string `json:"method" validate:"required,oneof=credit debit pix"`
	CardNumber   string `json:"card_number"`
	CardExpiry   string `json:"card_expiry"`
	CardCVV      string `json:"card_cvv"`
	CardName     string `json:"card_name"`
	Installments int    `json:"installments" validate:"omitempty,min=1,max=12"`
}

type cardFields struct {
	CardNumber string `json:"card_number" validate:"notblank"`
	CardExpiry string `json:"card_expiry" validate:"notblank"`
	CardCVV    string `json:"card_cvv" validate:"notblank"`
	CardName   string `json:"card_name" validate:"notblank"`
}

// Review is everything the confirmation page shows.
type Review struct {
	Step          enums.CheckoutStep   `json:"step"`
	StepName      string               `json:"step_name"`
	Items         []cart.LineItem      `json:"items"`
	Coupons       []coupons.Coupon     `json:"coupons"`
	Totals        cart.Totals          `json:"totals"`
	Personal      cart.PersonalData    `json:"personal"`
	Payment       *cart.PaymentDetails `json:"payment,omitempty"`
	TermsAccepted bool                 `json:"terms_accepted"`
	Order         *cart.OrderSnapshot  `json:"order,omitempty"`
}

// Flow walks a buyer through personal data, payment and confirmation.
// Moving back to any earlier step is allowed; moving forward only happens by
// submitting the current step.
type Flow struct {
	ledger ledger
	logg   *logger.Logger

	step          enums.CheckoutStep
	personal      cart.PersonalData
	payment       *cart.PaymentDetails
	termsAccepted bool
	finalizing    bool
	order         *cart.OrderSnapshot
}

// NewFlow builds a flow over l, starting before the personal data step.
func NewFlow(l ledger, opts Options) (*Flow, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Flow{ledger: l, logg: logg}, nil
}

// Step returns the current step; zero before Start.
func (f *Flow) Step() enums.CheckoutStep {
	return f.step
}

// Start opens a fresh checkout for buyer, discarding anything collected
// earlier. Name and email are prefilled from the buyer.
func (f *Flow) Start(buyer *cart.Buyer) error {
	if buyer == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "login required to checkout")
	}
	if f.ledger.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	if f.finalizing {
		return stateConflict("checkout in progress", f.step)
	}
	f.step = enums.CheckoutStepPersonalData
	f.personal = cart.PersonalData{FullName: buyer.Name, Email: buyer.Email}
	f.payment = nil
	f.termsAccepted = false
	f.order = nil
	return nil
}

// SubmitPersonalData validates the first step and advances to payment.
func (f *Flow) SubmitPersonalData(in PersonalDataInput) error {
	if err := f.expect(enums.CheckoutStepPersonalData); err != nil {
		return err
	}
	if err := validation.Struct(&in); err != nil {
		return err
	}
	f.personal = cart.PersonalData{
		FullName:  strings.TrimSpace(in.FullName),
		CPF:       strings.TrimSpace(in.CPF),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		BirthDate: strings.TrimSpace(in.BirthDate),
	}
	f.step = enums.CheckoutStepPayment
	return nil
}

// SubmitPayment validates the second step and advances to confirmation.
func (f *Flow) SubmitPayment(in PaymentInput) error {
	if err := f.expect(enums.CheckoutStepPayment); err != nil {
		return err
	}
	in.Method = strings.ToLower(strings.TrimSpace(in.Method))
	if err := validation.Struct(&in); err != nil {
		return err
	}
	method, err := enums.ParsePaymentMethod(in.Method)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	details := &cart.PaymentDetails{Method: method}
	if method.RequiresCard() {
		card := cardFields{
			CardNumber: in.CardNumber,
			CardExpiry: in.CardExpiry,
			CardCVV:    in.CardCVV,
			CardName:   in.CardName,
		}
		if err := validation.Struct(&card); err != nil {
			return err
		}
		details.CardNumber = strings.TrimSpace(in.CardNumber)
		details.CardExpiry = strings.TrimSpace(in.CardExpiry)
		details.CardCVV = strings.TrimSpace(in.CardCVV)
		details.CardName = strings.TrimSpace(in.CardName)
		details.Installments = in.Installments
		if details.Installments == 0 {
			details.Installments = 1
		}
	}
	f.payment = details
	f.termsAccepted = false
	f.step = enums.CheckoutStepConfirmation
	return nil
}

// GoBack returns to an earlier step. Collected data is kept; terms must be
// accepted again.
func (f *Flow) GoBack(to enums.CheckoutStep) error {
	if f.step == 0 || f.step == enums.CheckoutStepCompleted || f.finalizing {
		return stateConflict("checkout is not in progress", f.step)
	}
	if !to.IsValid() || to >= f.step {
		return stateConflict("can only move back to an earlier step", f.step)
	}
	f.step = to
	f.termsAccepted = false
	return nil
}

// AcceptTerms records the terms-of-use checkbox on the confirmation step.
func (f *Flow) AcceptTerms(accepted bool) error {
	if err := f.expect(enums.CheckoutStepConfirmation); err != nil {
		return err
	}
	f.termsAccepted = accepted
	return nil
}

// Review returns the current cart figures along with the collected data.
// Card numbers are masked.
func (f *Flow) Review() Review {
	r := Review{
		Step:          f.step,
		StepName:      stepName(f.step),
		Items:         f.ledger.Items(),
		Coupons:       f.ledger.AppliedCoupons(),
		Totals:        f.ledger.Totals(),
		Personal:      f.personal,
		TermsAccepted: f.termsAccepted,
		Order:         f.order,
	}
	if f.payment != nil {
		masked := cart.PaymentPayload{Payment: *f.payment}.Masked().Payment
		r.Payment = &masked
	}
	if f.order != nil {
		r.Items = f.order.Items
		r.Coupons = f.order.Coupons
		r.Totals = f.order.Totals
	}
	return r
}

// Finalize places the order. It requires the confirmation step with terms
// accepted. On failure the flow stays on confirmation so it can be retried.
func (f *Flow) Finalize(ctx context.Context) (*cart.OrderSnapshot, error) {
	if f.finalizing {
		return nil, stateConflict("checkout already in progress", f.step)
	}
	if err := f.expect(enums.CheckoutStepConfirmation); err != nil {
		return nil, err
	}
	if !f.termsAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeTermsNotAccepted, "terms of use must be accepted")
	}
	if f.payment == nil {
		return nil, stateConflict("payment details missing", f.step)
	}

	f.finalizing = true
	defer func() { f.finalizing = false }()

	order, err := f.ledger.Checkout(ctx, cart.PaymentPayload{Personal: f.personal, Payment: *f.payment})
	if err != nil {
		f.logg.Warn(f.logg.WithSessionID(ctx, f.ledger.SessionID()), "checkout finalize failed")
		return nil, err
	}

	f.order = order
	f.payment = nil
	f.termsAccepted = false
	f.step = enums.CheckoutStepCompleted
	return order, nil
}

func (f *Flow) expect(step enums.CheckoutStep) error {
	if f.step != step {
		return stateConflict(fmt.Sprintf("expected step %s", step), f.step)
	}
	return nil
}

func stateConflict(msg string, current enums.CheckoutStep) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"current_step": stepName(current)})
}

func stepName(step enums.CheckoutStep) string {
	if step == 0 {
		return "not_started"
	}
	return step.String()
}
