package models

// ResourceClass narrows a listing to one side of the catalogue.
type ResourceClass string

const (
	ClassAll       ResourceClass = "ALL"
	ClassEquipment ResourceClass = "EQUIPMENT"
	ClassSpace     ResourceClass = "SPACE"
)

// RequestFilter captures the composable listing criteria. All fields are
// optional and combine with logical AND.
type RequestFilter struct {
	// TextQuery matches case-insensitively against resource name,
	// requester name, and space name.
	TextQuery string
	// Class selects equipment-only or space-only requests.
	Class ResourceClass
	// SubcategoryID is an exact match; ignored when Class is SPACE.
	SubcategoryID string
	// DateFrom / DateTo are inclusive bounds against the window start.
	DateFrom LocalTime
	DateTo   LocalTime
	// RequesterID scopes instructors to their own history.
	RequesterID string
	// Statuses restricts to the given lifecycle states when non-empty.
	Statuses []Status
}

// Fingerprint renders a canonical key for the filter. The pagination engine
// compares fingerprints to reset the page whenever any criterion changes.
func (f RequestFilter) Fingerprint() string {
	statuses := ""
	for _, s := range f.Statuses {
		statuses += string(s) + ","
	}
	return f.TextQuery + "|" + string(f.Class) + "|" + f.SubcategoryID + "|" +
		f.DateFrom.String() + "|" + f.DateTo.String() + "|" + f.RequesterID + "|" + statuses
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
