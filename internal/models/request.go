package models

import (
	"time"

	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// Kind discriminates what a loan request is asking for.
type Kind string

const (
	KindEquipment Kind = "EQUIPMENT"
	KindSpace     Kind = "SPACE"
)

// EquipmentCategory splits equipment into cap groups.
type EquipmentCategory string

const (
	CategoryGeneral EquipmentCategory = "GENERAL"
	CategoryLaptop  EquipmentCategory = "LAPTOP"
)

// QuantityCap returns the maximum number of items a single request may hold.
func (c EquipmentCategory) QuantityCap() int {
	if c == CategoryLaptop {
		return 3
	}
	return 2
}

// Status captures the lifecycle state of a loan request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusFinished  Status = "FINISHED"
)

// statusCodes is the wire mapping used by the legacy backend. It must stay
// exhaustive and bidirectional; decode of an unmapped code fails loudly.
var statusCodes = map[Status]int{
	StatusPending:   1,
	StatusApproved:  2,
	StatusRejected:  3,
	StatusCancelled: 4,
	StatusFinished:  5,
}

var codeStatuses = func() map[int]Status {
	m := make(map[int]Status, len(statusCodes))
	for s, c := range statusCodes {
		m[c] = s
	}
	return m
}()

// WireCode returns the integer code the backend expects for this status.
func (s Status) WireCode() (int, bool) {
	code, ok := statusCodes[s]
	return code, ok
}

// StatusFromWireCode resolves an integer status code from the backend.
func StatusFromWireCode(code int) (Status, bool) {
	s, ok := codeStatuses[code]
	return s, ok
}

// Valid reports whether the status is one of the five known values.
func (s Status) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// Terminal reports whether no instructor-initiated action can follow.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusFinished:
		return true
	}
	return false
}

// Window is the requested loan interval. End is always after Start.
type Window struct {
	Start LocalTime `json:"start"`
	End   LocalTime `json:"end"`
}

// Request represents one loan request for equipment items or a single space.
//
// Entities are owned by the request store; everything handed out of the store
// is a copy, and mutations go through the coordinator or the sweeper only.
type Request struct {
	ID            string            `json:"id"`
	RequesterID   string            `json:"requester_id"`
	RequesterName string            `json:"requester_name"`
	Kind          Kind              `json:"kind"`
	ResourceRefs  []string          `json:"resource_refs,omitempty"`
	ResourceName  string            `json:"resource_name,omitempty"`
	Quantity      int               `json:"quantity,omitempty"`
	Category      EquipmentCategory `json:"category,omitempty"`
	SubcategoryID string            `json:"subcategory_id,omitempty"`
	SpaceID       string            `json:"space_id,omitempty"`
	SpaceName     string            `json:"space_name,omitempty"`
	Window        Window            `json:"window"`
	Environment   string            `json:"environment"`
	TicketNumber  string            `json:"ticket_number"`
	Status        Status            `json:"status"`
	CreatedAt     LocalTime         `json:"created_at"`

	// PendingOp marks an in-flight transition. Coordinator-owned, never
	// persisted remotely.
	PendingOp string `json:"-"`
}

// Locked reports whether a transition is outstanding for this request.
func (r *Request) Locked() bool {
	return r.PendingOp != ""
}

// Clone returns a deep copy safe to hand outside the store.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ResourceRefs != nil {
		cp.ResourceRefs = append([]string(nil), r.ResourceRefs...)
	}
	return &cp
}

// Draft carries the fields an instructor submits when creating a request.
type Draft struct {
	RequesterID   string
	RequesterName string
	Kind          Kind
	ResourceRefs  []string
	ResourceName  string
	Quantity      int
	Category      EquipmentCategory
	SubcategoryID string
	SpaceID       string
	SpaceName     string
	Window        Window
	Environment   string
	TicketNumber  string
}

// NewRequest validates the draft invariants and builds a pending request.
// The backend assigns the ID on creation.
func NewRequest(draft Draft, now time.Time) (*Request, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	req := &Request{
		RequesterID:   draft.RequesterID,
		RequesterName: draft.RequesterName,
		Kind:          draft.Kind,
		ResourceName:  draft.ResourceName,
		SubcategoryID: draft.SubcategoryID,
		Window:        draft.Window,
		Environment:   draft.Environment,
		TicketNumber:  draft.TicketNumber,
		Status:        StatusPending,
		CreatedAt:     NewLocalTime(now),
	}
	if draft.Kind == KindEquipment {
		req.ResourceRefs = append([]string(nil), draft.ResourceRefs...)
		req.Quantity = draft.Quantity
		req.Category = draft.Category
		if req.Category == "" {
			req.Category = CategoryGeneral
		}
	} else {
		req.SpaceID = draft.SpaceID
		req.SpaceName = draft.SpaceName
	}
	return req, nil
}

// Validate enforces the construction-time invariants: a forward window, a
// quantity within the category cap, and resource refs matching the kind.
func (d Draft) Validate() error {
	if !d.Window.End.Time().After(d.Window.Start.Time()) {
		return draftError("window end must be after start")
	}
	switch d.Kind {
	case KindEquipment:
		if len(d.ResourceRefs) == 0 {
			return draftError("equipment request needs at least one resource ref")
		}
		if d.SpaceID != "" {
			return draftError("equipment request cannot reference a space")
		}
		category := d.Category
		if category == "" {
			category = CategoryGeneral
		}
		if err := CheckQuantity(category, d.Quantity); err != nil {
			return err
		}
	case KindSpace:
		if d.SpaceID == "" {
			return draftError("space request needs a space id")
		}
		if len(d.ResourceRefs) > 0 {
			return draftError("space request cannot carry resource refs")
		}
	default:
		return draftError("unknown request kind")
	}
	return nil
}

// CheckQuantity validates a quantity against the category cap. It is applied
// at creation and re-applied on approval because some flows allow editing the
// quantity while a request is still pending.
func CheckQuantity(category EquipmentCategory, quantity int) error {
	if quantity < 1 {
		return draftError("quantity must be at least 1")
	}
	if cap := category.QuantityCap(); quantity > cap {
		return draftError("quantity exceeds the category cap")
	}
	return nil
}

func draftError(message string) error {
	return appErrors.Clone(appErrors.ErrInvalidRequestDraft, message)
}
