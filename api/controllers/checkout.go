package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/api/responses"
	"github.com/evanrosales/shopsphere-backend/api/validators"
	checkoutsvc "github.com/evanrosales/shopsphere-backend/internal/checkout"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
)

type checkoutRequest struct {
	PaymentMethod   string        `json:"payment_method,omitempty"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	ContactPhone    string        `json:"contact_phone,omitempty"`
	CouponCode      *string       `json:"coupon_code,omitempty"`
}

func (c checkoutRequest) toInput() (checkoutsvc.CheckoutInput, error) {
	input := checkoutsvc.CheckoutInput{
		ShippingAddress: c.ShippingAddress,
		ContactPhone:    strings.TrimSpace(c.ContactPhone),
		CouponCode:      c.CouponCode,
	}
	if method := strings.TrimSpace(c.PaymentMethod); method != "" {
		parsed, err := enums.ParsePaymentMethod(method)
		if err != nil {
			return checkoutsvc.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.PaymentMethod = parsed
	}
	return input, nil
}

// CheckoutCart turns the caller's cart into an order, all or nothing.
func CheckoutCart(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CheckoutCart(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type buyNowRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	checkoutRequest
}

// BuyNow checks out a single line directly, without touching the cart.
func BuyNow(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload buyNowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		line := checkoutsvc.LineRequest{
			ProductID: productID,
			Quantity:  payload.Quantity,
		}
		if payload.VariantID != nil {
			variantID, parseErr := uuid.Parse(*payload.VariantID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid variant id"))
				return
			}
			line.VariantID = &variantID
		}

		order, err := svc.BuyNow(r.Context(), userID, line, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
