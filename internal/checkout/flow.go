// Package checkout holds the multi-step checkout state machine. The flow is
// linear, shipping → payment → confirmation, with guarded transitions and no
// way back out of confirmation. It knows nothing about HTTP or rendering so it
// can be exercised directly in tests.
package checkout

import (
	"errors"
	"strings"
	"sync"

	"github.com/atelieforma/storefront/internal/models"
	"github.com/google/uuid"
)

type State string

const (
	StateShipping     State = "shipping"
	StatePayment      State = "payment"
	StateConfirmation State = "confirmation"
)

var (
	ErrFlowCompleted     = errors.New("checkout flow already completed")
	ErrWrongState        = errors.New("operation not allowed in current state")
	ErrNoAddressSelected = errors.New("no delivery address selected")
	ErrBlankRecipient    = errors.New("recipient name must not be blank")
	ErrNoPaymentMethod   = errors.New("no payment method chosen")
	ErrSubmitInFlight    = errors.New("order submission already in flight")
)

// Flow tracks one user's progress through checkout. All methods are safe for
// concurrent use; the submission latch guarantees at most one in-flight
// confirm regardless of how fast the button is clicked.
type Flow struct {
	mu sync.Mutex

	state     State
	address   *models.Address
	recipient string
	method    models.PaymentMethod
	orderID   uuid.UUID
	inFlight  bool
}

// NewFlow starts at the shipping step. The recipient name defaults to the
// user's profile name and stays editable until payment.
func NewFlow(defaultRecipient string) *Flow {
	return &Flow{
		state:     StateShipping,
		recipient: strings.TrimSpace(defaultRecipient),
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// SelectAddress stores a copy of the address, never a live reference.
func (f *Flow) SelectAddress(address models.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateShipping {
		return f.stateError()
	}

	snapshot := address
	f.address = &snapshot

	return nil
}

func (f *Flow) SetRecipient(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateShipping {
		return f.stateError()
	}

	f.recipient = strings.TrimSpace(name)

	return nil
}

// AdvanceToPayment moves shipping → payment. Requires a selected address and a
// non-blank recipient name.
func (f *Flow) AdvanceToPayment() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateShipping {
		return f.stateError()
	}

	if f.address == nil {
		return ErrNoAddressSelected
	}

	if f.recipient == "" {
		return ErrBlankRecipient
	}

	f.state = StatePayment

	return nil
}

func (f *Flow) ChooseMethod(method models.PaymentMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePayment {
		return f.stateError()
	}

	if method != models.PaymentMethodPix && method != models.PaymentMethodWhatsApp {
		return ErrNoPaymentMethod
	}

	f.method = method

	return nil
}

// StartSubmission arms the duplicate-submit latch. A second call before
// FinishSubmission or FailSubmission returns ErrSubmitInFlight, so the order
// collaborator is invoked at most once per confirm.
func (f *Flow) StartSubmission() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePayment {
		return f.stateError()
	}

	if f.method == "" {
		return ErrNoPaymentMethod
	}

	if f.inFlight {
		return ErrSubmitInFlight
	}

	f.inFlight = true

	return nil
}

// FinishSubmission records the order id assigned by the order service and
// moves the flow to its terminal state.
func (f *Flow) FinishSubmission(orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePayment || !f.inFlight {
		return ErrWrongState
	}

	f.inFlight = false
	f.orderID = orderID
	f.state = StateConfirmation

	return nil
}

// FailSubmission releases the latch; the flow stays at payment with everything
// intact so the user can retry.
func (f *Flow) FailSubmission() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight = false
}

func (f *Flow) Address() (models.Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.address == nil {
		return models.Address{}, false
	}

	return *f.address, true
}

func (f *Flow) Recipient() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.recipient
}

func (f *Flow) Method() models.PaymentMethod {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.method
}

func (f *Flow) OrderID() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.orderID
}

// caller must hold f.mu
func (f *Flow) stateError() error {
	if f.state == StateConfirmation {
		return ErrFlowCompleted
	}

	return ErrWrongState
}
