package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/api/middleware"
	"github.com/evanrosales/shopsphere-backend/api/responses"
	"github.com/evanrosales/shopsphere-backend/api/validators"
	catalogsvc "github.com/evanrosales/shopsphere-backend/internal/catalog"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
)

// ListProducts is the public browse endpoint. Customers only ever see
// approved products; admins may pass include_unapproved=true.
func ListProducts(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvedOnly := true
		if middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin) &&
			r.URL.Query().Get("include_unapproved") == "true" {
			approvedOnly = false
		}

		result, err := svc.ListProducts(r.Context(), catalogsvc.ListProductsInput{
			Category:     strings.TrimSpace(r.URL.Query().Get("category")),
			Search:       strings.TrimSpace(r.URL.Query().Get("q")),
			ApprovedOnly: approvedOnly,
			Pagination:   params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type variantRequest struct {
	SKU                 string            `json:"sku" validate:"required"`
	PriceCents          int               `json:"price_cents" validate:"min=0"`
	CompareAtPriceCents *int              `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	Stock               int               `json:"stock" validate:"min=0"`
	Attributes          map[string]string `json:"attributes" validate:"required,min=1"`
	IsDefault           bool              `json:"is_default"`
}

func (v variantRequest) toInput() catalogsvc.VariantInput {
	return catalogsvc.VariantInput{
		SKU:                 strings.TrimSpace(v.SKU),
		PriceCents:          v.PriceCents,
		CompareAtPriceCents: v.CompareAtPriceCents,
		Stock:               v.Stock,
		Attributes:          types.AttributeSet(v.Attributes),
		IsDefault:           v.IsDefault,
	}
}

type createProductRequest struct {
	Name                string           `json:"name" validate:"required"`
	Brand               string           `json:"brand"`
	Category            string           `json:"category" validate:"required"`
	Description         string           `json:"description"`
	Tags                []string         `json:"tags,omitempty"`
	PriceCents          int              `json:"price_cents" validate:"min=0"`
	CompareAtPriceCents *int             `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	Stock               int              `json:"stock" validate:"min=0"`
	Variants            []variantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

func CreateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalogsvc.CreateProductInput{
			Name:                strings.TrimSpace(payload.Name),
			Brand:               strings.TrimSpace(payload.Brand),
			Category:            strings.TrimSpace(payload.Category),
			Description:         payload.Description,
			Tags:                payload.Tags,
			PriceCents:          payload.PriceCents,
			CompareAtPriceCents: payload.CompareAtPriceCents,
			Stock:               payload.Stock,
		}
		for _, v := range payload.Variants {
			input.Variants = append(input.Variants, v.toInput())
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name                *string   `json:"name,omitempty"`
	Brand               *string   `json:"brand,omitempty"`
	Category            *string   `json:"category,omitempty"`
	Description         *string   `json:"description,omitempty"`
	Tags                *[]string `json:"tags,omitempty"`
	PriceCents          *int      `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
}

func UpdateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, catalogsvc.UpdateProductInput{
			Name:                payload.Name,
			Brand:               payload.Brand,
			Category:            payload.Category,
			Description:         payload.Description,
			Tags:                payload.Tags,
			PriceCents:          payload.PriceCents,
			CompareAtPriceCents: payload.CompareAtPriceCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func SetProductApproval(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approvalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.SetApproval(r.Context(), id, *payload.Approved)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AddVariant(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload variantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AddVariant(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateVariantRequest struct {
	SKU                 *string            `json:"sku,omitempty"`
	PriceCents          *int               `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	CompareAtPriceCents *int               `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	Attributes          *map[string]string `json:"attributes,omitempty"`
	IsDefault           *bool              `json:"is_default,omitempty"`
}

func UpdateVariant(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalogsvc.UpdateVariantInput{
			SKU:                 payload.SKU,
			PriceCents:          payload.PriceCents,
			CompareAtPriceCents: payload.CompareAtPriceCents,
			IsDefault:           payload.IsDefault,
		}
		if payload.Attributes != nil {
			attrs := types.AttributeSet(*payload.Attributes)
			input.Attributes = &attrs
		}

		product, err := svc.UpdateVariant(r.Context(), productID, variantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func RemoveVariant(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.RemoveVariant(r.Context(), productID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type adjustStockRequest struct {
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Delta     int     `json:"delta" validate:"required"`
}

// AdjustStock is the manual stock correction endpoint. It routes through the
// same ledger as checkout, so the adjustment is conditional and atomic.
func AdjustStock(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var variantID *uuid.UUID
		if payload.VariantID != nil {
			parsed, parseErr := uuid.Parse(*payload.VariantID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid variant id"))
				return
			}
			variantID = &parsed
		}

		product, err := svc.AdjustStock(r.Context(), productID, variantID, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
