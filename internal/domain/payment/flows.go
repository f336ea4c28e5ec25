package payment

// flow is the transition table for one payment method. Cancellation is
// handled in Machine.Apply and does not appear here.
type flow map[State]map[EventType]State

func (f flow) transition(from State, ev EventType) (State, bool) {
	events, ok := f[from]
	if !ok {
		return "", false
	}
	next, ok := events[ev]
	return next, ok
}

// flows defines each method's protocol shape. Card and wallet end in strong
// SUCCESS; bank transfer, cash on delivery, and mobile instant end in weak
// CONFIRMED (accepted, financially unconfirmed).
var flows = map[Method]flow{
	MethodCard: {
		StateInit:       {EventSubmit: StateFormEntry},
		StateFormEntry:  {EventCardDetails: StateValidating},
		StateValidating: {EventTimerElapsed: StateSuccess},
	},
	MethodWallet: {
		StateInit:          {EventSubmit: StateAccountSelect},
		StateAccountSelect: {EventSelectSource: StateReview},
		StateReview: {
			// The review screen allows switching the funding source before
			// confirming.
			EventSelectSource: StateReview,
			EventConfirm:      StateProcessing,
		},
		StateProcessing: {EventTimerElapsed: StateSuccess},
	},
	MethodBankTransfer: {
		StateInit:              {EventSubmit: StateInstructionsShown},
		StateInstructionsShown: {EventConfirm: StateConfirmed},
	},
	MethodCashOnDelivery: {
		StateInit:           {EventSubmit: StateSurchargeShown},
		StateSurchargeShown: {EventConfirm: StateConfirmed},
	},
	MethodMobileInstant: {
		StateInit:              {EventSubmit: StateInstructionsShown},
		StateInstructionsShown: {EventConfirm: StateConfirmed},
	},
}
