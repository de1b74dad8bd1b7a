package dto

// CreateLoanRequest is the payload an instructor submits for a new loan.
// Equipment requests carry resource refs and a quantity; space requests carry
// a space id. Timestamps use the wire shape YYYY-MM-DDTHH:mm[:ss].
type CreateLoanRequest struct {
	Kind          string   `json:"kind" validate:"required,oneof=EQUIPMENT SPACE"`
	ResourceRefs  []string `json:"resource_refs"`
	ResourceName  string   `json:"resource_name"`
	Quantity      int      `json:"quantity" validate:"omitempty,min=1"`
	Category      string   `json:"category" validate:"omitempty,oneof=GENERAL LAPTOP"`
	SubcategoryID string   `json:"subcategory_id"`
	SpaceID       string   `json:"space_id"`
	SpaceName     string   `json:"space_name"`
	Start         string   `json:"start" validate:"required"`
	End           string   `json:"end" validate:"required"`
	Environment   string   `json:"environment" validate:"required"`
	TicketNumber  string   `json:"ticket_number" validate:"required"`
}

// TransitionRequest asks for a status change on an existing loan request.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// RequestQuery mirrors the listing filter parameters.
type RequestQuery struct {
	Search        string
	Class         string
	SubcategoryID string
	DateFrom      string
	DateTo        string
	Status        string
	Page          int
}
