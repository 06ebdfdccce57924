package gateway

import "github.com/google/uuid"

type InitiateRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

type InitiateResponse struct {
	RefID       string `json:"ref_id"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
}
