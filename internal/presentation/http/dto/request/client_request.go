package request

// CreateClientRequest represents a client creation request
type CreateClientRequest struct {
	Name    string  `json:"name" binding:"required,min=1,max=255"`
	Email   string  `json:"email" binding:"required,email,max=255"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Company *string `json:"company" binding:"omitempty,max=255"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// UpdateClientRequest represents a client update request
type UpdateClientRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email   *string `json:"email" binding:"omitempty,email,max=255"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Company *string `json:"company" binding:"omitempty,max=255"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// ListRequest carries the common listing query parameters
type ListRequest struct {
	Search  string `form:"search"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}
