package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/atelieforma/storefront/internal/api/middleware"
	appErrors "github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	service "github.com/atelieforma/storefront/internal/services"
	"github.com/atelieforma/storefront/internal/utils"
	"github.com/atelieforma/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// CheckoutHandler exposes the shipping → payment → confirmation flow. An
// empty cart at any step redirects to the catalog instead of rendering a
// checkout for nothing.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validator: validator.New()}
}

func (h *CheckoutHandler) Begin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized checkout attempt")
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		status, err := h.checkoutService.Begin(r.Context(), claims.UserID)
		if err != nil {
			h.handleCheckoutError(w, r, logger, err, "Failed to begin checkout")
			return
		}

		logger.Info("Checkout started", slog.String("userId", claims.UserID.String()))
		response.Success(w, http.StatusOK, status)
	}
}

func (h *CheckoutHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized checkout attempt")
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		status, err := h.checkoutService.Status(r.Context(), claims.UserID)
		if err != nil {
			h.handleCheckoutError(w, r, logger, err, "Failed to fetch checkout status")
			return
		}

		response.Success(w, http.StatusOK, status)
	}
}

func (h *CheckoutHandler) SubmitShipping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized checkout attempt")
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		var req models.CheckoutShippingRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid shipping input")
			return
		}

		status, err := h.checkoutService.SubmitShipping(r.Context(), claims.UserID, &req)
		if err != nil {
			h.handleCheckoutError(w, r, logger, err, "Failed to submit shipping step")
			return
		}

		logger.Info("Shipping step completed", slog.String("userId", claims.UserID.String()))
		response.Success(w, http.StatusOK, status)
	}
}

func (h *CheckoutHandler) ChoosePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized checkout attempt")
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		var req models.CheckoutPaymentRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid payment input")
			return
		}

		status, err := h.checkoutService.ChoosePayment(r.Context(), claims.UserID, req.Method)
		if err != nil {
			h.handleCheckoutError(w, r, logger, err, "Failed to choose payment method")
			return
		}

		logger.Info("Payment method chosen", slog.String("method", string(req.Method)))
		response.Success(w, http.StatusOK, status)
	}
}

func (h *CheckoutHandler) Confirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized checkout attempt")
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		confirmation, err := h.checkoutService.Confirm(r.Context(), claims.UserID)
		if err != nil {
			h.handleCheckoutError(w, r, logger, err, "Failed to confirm order")
			return
		}

		logger.Info("Order confirmed",
			slog.String("orderId", confirmation.OrderID.String()),
			slog.String("method", string(confirmation.Method)),
		)
		response.Success(w, http.StatusCreated, confirmation)
	}
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {

	if errors.Is(err, service.ErrCartEmpty) {
		logger.Info("Checkout with empty cart, redirecting to catalog")
		http.Redirect(w, r, service.CatalogPath, http.StatusSeeOther)
		return
	}

	logger.Error(message, slog.Any("error", err))
	response.Error(w, err)
}
