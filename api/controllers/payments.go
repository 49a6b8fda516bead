package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/api/responses"
	"github.com/evanrosales/shopsphere-backend/api/validators"
	ordersvc "github.com/evanrosales/shopsphere-backend/internal/orders"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
)

type paymentWebhookRequest struct {
	OrderID   string `json:"order_id" validate:"required,uuid"`
	Status    string `json:"status" validate:"required"`
	Reference string `json:"reference,omitempty"`
}

// PaymentWebhook is the provider callback. Only a succeeded status marks the
// order paid; anything else is acknowledged and ignored, providers retry.
func PaymentWebhook(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentWebhookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		if payload.Status != "succeeded" {
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := svc.MarkPaid(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
