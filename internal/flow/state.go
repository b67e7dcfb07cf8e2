package flow

// State is a flow controller state.
type State string

const (
	// StateIdle waits for an amount or a submit.
	StateIdle State = "idle"
	// StateValidating is entered on every amount change while the amount is resolved and checked.
	StateValidating State = "validating"
	// StateCapExceeded blocks submission until the amount is lowered.
	StateCapExceeded State = "cap_exceeded"
	// StateInitiating waits for the capability to open a payment session.
	StateInitiating State = "initiating"
	// StateAwaitingPayment polls the payment status.
	StateAwaitingPayment State = "awaiting_payment"
	// StateReleased means the funds were delivered.
	StateReleased State = "released"
	// StateFailed means the attempt failed; the user may retry.
	StateFailed State = "failed"
)

// Terminal reports whether the current attempt has ended.
func (s State) Terminal() bool {
	return s == StateReleased || s == StateFailed
}
