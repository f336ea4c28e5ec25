// Package payment simulates the confirmation protocol of each supported
// payment method as a small finite-state machine.
//
// Machines are headless and purely event-driven: they never start timers or
// perform I/O. Where a real provider would impose latency, the machine
// returns a Schedule effect and the driver (the session manager, or a test)
// decides when to deliver the TimerElapsed event. This keeps every flow
// testable without real clocks.
package payment

import "github.com/go-faster/errors"

// Method enumerates the supported payment methods.
type Method string

const (
	// MethodCard simulates a hosted card form with a validation step.
	MethodCard Method = "card"
	// MethodWallet simulates a redirect-style wallet with funding-source
	// selection and a review step.
	MethodWallet Method = "wallet"
	// MethodBankTransfer shows transfer instructions; confirmation is weak
	// (the order stays financially unconfirmed).
	MethodBankTransfer Method = "bank_transfer"
	// MethodCashOnDelivery shows the surcharge breakdown; weak confirmation.
	MethodCashOnDelivery Method = "cash_on_delivery"
	// MethodMobileInstant is a thin variant of bank transfer semantics.
	MethodMobileInstant Method = "mobile_instant"
)

// ErrUnknownMethod is returned for a method outside the supported set.
var ErrUnknownMethod = errors.New("unknown payment method")

// ParseMethod validates a wire-level payment method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCard, MethodWallet, MethodBankTransfer, MethodCashOnDelivery, MethodMobileInstant:
		return Method(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownMethod, "%q", s)
	}
}
