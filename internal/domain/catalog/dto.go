package catalog

type CreateItemRequest struct {
	Title        string `json:"title" validate:"required,min=2,max=120"`
	Description  string `json:"description" validate:"max=2000"`
	Price        int64  `json:"price" validate:"required,gt=0"`
	RewriteLimit int    `json:"rewrite_limit" validate:"required,gt=0"`
	Tier         string `json:"tier" validate:"required,tier"`
	Enabled      *bool  `json:"enabled"`
}

type UpdateItemRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=2,max=120"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	Price        *int64  `json:"price" validate:"omitempty,gt=0"`
	RewriteLimit *int    `json:"rewrite_limit" validate:"omitempty,gt=0"`
	Tier         *string `json:"tier" validate:"omitempty,tier"`
	Enabled      *bool   `json:"enabled"`
}

type SetMethodRequest struct {
	Enabled bool `json:"enabled"`
}

// StorefrontResponse is the public catalog view: purchasable items plus the
// payment channels currently accepting orders.
type StorefrontResponse struct {
	Items          []Item          `json:"items"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}
