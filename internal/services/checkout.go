package service

import (
	"context"
	"errors"
	"sync"

	"github.com/atelieforma/storefront/internal/checkout"
	appErrors "github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	"github.com/atelieforma/storefront/pkg/whatsapp"
	"github.com/google/uuid"
)

// ErrCartEmpty signals that checkout cannot proceed because the cart is (or
// has become) empty. The HTTP layer answers it with a redirect to the shop
// listing rather than an error page.
var ErrCartEmpty = errors.New("cart is empty")

// CatalogPath is where an aborted or finished checkout sends the user.
const CatalogPath = "/api/v1/products"

type cartProvider interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type profileProvider interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	AddAddress(ctx context.Context, userID uuid.UUID, req *models.AddAddressRequest) (*models.Address, error)
	AddressForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
}

// CheckoutService orchestrates the shipping → payment → confirmation flow.
// One flow per user; the flow itself enforces transition guards and the
// duplicate-submit latch, this service supplies the collaborators.
type CheckoutService struct {
	carts  cartProvider
	users  profileProvider
	orders orderCreator
	links  *whatsapp.Client
	pixKey string

	mu    sync.Mutex
	flows map[uuid.UUID]*checkout.Flow
}

func NewCheckoutService(carts cartProvider, users profileProvider, orders orderCreator, links *whatsapp.Client, pixKey string) *CheckoutService {
	return &CheckoutService{
		carts:  carts,
		users:  users,
		orders: orders,
		links:  links,
		pixKey: pixKey,
		flows:  make(map[uuid.UUID]*checkout.Flow),
	}
}

// Begin starts (or resumes) the user's checkout. Precondition: non-empty cart.
func (s *CheckoutService) Begin(ctx context.Context, userID uuid.UUID) (*models.CheckoutStatus, error) {

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	s.mu.Lock()
	flow, ok := s.flows[userID]
	s.mu.Unlock()

	if ok && flow.State() != checkout.StateConfirmation {
		return s.status(flow, cart), nil
	}

	user, err := s.users.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	flow = checkout.NewFlow(user.Name)

	s.mu.Lock()
	s.flows[userID] = flow
	s.mu.Unlock()

	return s.status(flow, cart), nil
}

func (s *CheckoutService) Status(ctx context.Context, userID uuid.UUID) (*models.CheckoutStatus, error) {

	flow, err := s.flowFor(userID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.status(flow, cart), nil
}

// SubmitShipping selects or creates the delivery address, records the
// recipient name and advances to payment. When address creation fails nothing
// was mutated client-side, so the step simply surfaces the error and can be
// retried.
func (s *CheckoutService) SubmitShipping(ctx context.Context, userID uuid.UUID, req *models.CheckoutShippingRequest) (*models.CheckoutStatus, error) {

	flow, err := s.flowFor(userID)
	if err != nil {
		return nil, err
	}

	cart, err := s.ensureCartNotEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case req.NewAddress != nil:
		address, err := s.users.AddAddress(ctx, userID, req.NewAddress)
		if err != nil {
			return nil, err
		}

		if err := flow.SelectAddress(*address); err != nil {
			return nil, translateFlowErr(err)
		}

	case req.AddressID != nil:
		address, err := s.users.AddressForUser(ctx, *req.AddressID, userID)
		if err != nil {
			return nil, err
		}

		if err := flow.SelectAddress(*address); err != nil {
			return nil, translateFlowErr(err)
		}
	}

	if req.RecipientName != "" {
		if err := flow.SetRecipient(req.RecipientName); err != nil {
			return nil, translateFlowErr(err)
		}
	}

	if err := flow.AdvanceToPayment(); err != nil {
		return nil, translateFlowErr(err)
	}

	return s.status(flow, cart), nil
}

func (s *CheckoutService) ChoosePayment(ctx context.Context, userID uuid.UUID, method models.PaymentMethod) (*models.CheckoutStatus, error) {

	flow, err := s.flowFor(userID)
	if err != nil {
		return nil, err
	}

	cart, err := s.ensureCartNotEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := flow.ChooseMethod(method); err != nil {
		return nil, translateFlowErr(err)
	}

	return s.status(flow, cart), nil
}

// Confirm submits the order exactly once. On failure the flow stays at payment
// with the cart intact; on success the cart is cleared and the flow reaches
// its terminal state.
func (s *CheckoutService) Confirm(ctx context.Context, userID uuid.UUID) (*models.CheckoutConfirmation, error) {

	flow, err := s.flowFor(userID)
	if err != nil {
		return nil, err
	}

	if err := flow.StartSubmission(); err != nil {
		return nil, translateFlowErr(err)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		flow.FailSubmission()
		return nil, err
	}

	// the cart may have been emptied from another tab since the flow began
	if cart.IsEmpty() {
		flow.FailSubmission()
		s.dropFlow(userID)

		return nil, ErrCartEmpty
	}

	address, ok := flow.Address()
	if !ok {
		flow.FailSubmission()
		return nil, appErrors.ValidationError("Select a delivery address first")
	}

	lines := make([]models.OrderLine, 0, len(cart.Lines))

	for _, line := range cart.Lines {
		lines = append(lines, models.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	draft := &models.CreateOrderRequest{
		UserID:          userID,
		Lines:           lines,
		ShippingAddress: address,
		PaymentMethod:   flow.Method(),
		Notes:           "Entregar para: " + flow.Recipient(),
	}

	order, err := s.orders.CreateOrder(ctx, draft)
	if err != nil {
		flow.FailSubmission()
		return nil, err
	}

	if _, err := s.carts.ClearCart(ctx, userID); err != nil {
		// the order exists; an unclean cart is recoverable, a lost order is not
		flow.FailSubmission()
		return nil, appErrors.InternalError("Order created but cart could not be cleared").WithError(err)
	}

	if err := flow.FinishSubmission(order.ID); err != nil {
		return nil, translateFlowErr(err)
	}

	confirmation := &models.CheckoutConfirmation{
		OrderID:     order.ID,
		Total:       order.Total,
		Method:      order.PaymentMethod,
		CatalogPath: CatalogPath,
	}

	switch order.PaymentMethod {
	case models.PaymentMethodWhatsApp:
		confirmation.WhatsAppLink = s.links.PaymentLink(order.ID, order.Total)
	case models.PaymentMethodPix:
		confirmation.PixKey = s.pixKey
	}

	return confirmation, nil
}

func (s *CheckoutService) flowFor(userID uuid.UUID) (*checkout.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[userID]
	if !ok {
		return nil, appErrors.NotFoundError("No active checkout")
	}

	return flow, nil
}

func (s *CheckoutService) dropFlow(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flows, userID)
}

func (s *CheckoutService) ensureCartNotEmpty(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		s.dropFlow(userID)

		return nil, ErrCartEmpty
	}

	return cart, nil
}

func (s *CheckoutService) status(flow *checkout.Flow, cart *models.Cart) *models.CheckoutStatus {

	status := &models.CheckoutStatus{
		State:         string(flow.State()),
		RecipientName: flow.Recipient(),
		Method:        flow.Method(),
		CartTotal:     cart.Total,
		CartCount:     cart.Count,
		OrderID:       flow.OrderID(),
	}

	if address, ok := flow.Address(); ok {
		status.Address = &address
	}

	return status
}

func translateFlowErr(err error) error {
	switch {
	case errors.Is(err, checkout.ErrSubmitInFlight):
		return appErrors.ConflictError("Order submission already in progress")
	case errors.Is(err, checkout.ErrFlowCompleted):
		return appErrors.ConflictError("Checkout already completed")
	case errors.Is(err, checkout.ErrNoAddressSelected):
		return appErrors.ValidationError("Select a delivery address first")
	case errors.Is(err, checkout.ErrBlankRecipient):
		return appErrors.ValidationError("Recipient name must not be blank")
	case errors.Is(err, checkout.ErrNoPaymentMethod):
		return appErrors.ValidationError("Choose a payment method first")
	default:
		return appErrors.BadRequestError("Operation not allowed in the current checkout step")
	}
}
