package order

import "github.com/google/uuid"

type InitiateRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

type InitiateResponse struct {
	Order        *Order `json:"order"`
	Instructions string `json:"instructions"`
	PayeeID      string `json:"payee_id,omitempty"`
	PayeeName    string `json:"payee_name,omitempty"`
}

type SubmitProofRequest struct {
	TransactionProof string `json:"transaction_proof" validate:"required,min=3,max=500"`
}

// ListFilter narrows and orders the admin order listing. Search matches the
// order identifier or the buyer's name/email.
type ListFilter struct {
	UserID *uuid.UUID
	Status Status
	Search string
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// AdminOrder is the admin listing row with the buyer joined in.
type AdminOrder struct {
	Order
	UserName  string `db:"user_name" json:"user_name"`
	UserEmail string `db:"user_email" json:"user_email"`
}
