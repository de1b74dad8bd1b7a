package upstream

import (
	"fmt"

	"github.com/prestago/loans-api/internal/models"
)

// wireRequest mirrors the legacy backend's JSON shape. Status travels as a
// small integer code and timestamps as local-time strings without an offset.
type wireRequest struct {
	ID            string   `json:"id"`
	RequesterID   string   `json:"requesterId"`
	RequesterName string   `json:"requesterName"`
	ResourceRefs  []string `json:"resourceRefs,omitempty"`
	ResourceName  string   `json:"resourceName,omitempty"`
	Quantity      int      `json:"quantity,omitempty"`
	Category      string   `json:"category,omitempty"`
	SubcategoryID string   `json:"subcategoryId,omitempty"`
	SpaceID       string   `json:"spaceId,omitempty"`
	SpaceName     string   `json:"spaceName,omitempty"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	Environment   string   `json:"environment"`
	TicketNumber  string   `json:"ticketNumber"`
	StatusCode    int      `json:"statusCode"`
	CreatedAt     string   `json:"createdAt"`
}

// wireDraft is the creation payload. The backend assigns id, status, and
// createdAt.
type wireDraft struct {
	RequesterID   string   `json:"requesterId"`
	RequesterName string   `json:"requesterName"`
	ResourceRefs  []string `json:"resourceRefs,omitempty"`
	ResourceName  string   `json:"resourceName,omitempty"`
	Quantity      int      `json:"quantity,omitempty"`
	Category      string   `json:"category,omitempty"`
	SubcategoryID string   `json:"subcategoryId,omitempty"`
	SpaceID       string   `json:"spaceId,omitempty"`
	SpaceName     string   `json:"spaceName,omitempty"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	Environment   string   `json:"environment"`
	TicketNumber  string   `json:"ticketNumber"`
}

type wireStatusPatch struct {
	StatusCode int `json:"statusCode"`
}

func decodeRequest(w wireRequest) (*models.Request, error) {
	status, ok := models.StatusFromWireCode(w.StatusCode)
	if !ok {
		return nil, fmt.Errorf("request %s: unmapped status code %d", w.ID, w.StatusCode)
	}
	start, err := models.ParseLocalTime(w.StartDate)
	if err != nil {
		return nil, fmt.Errorf("request %s: start: %w", w.ID, err)
	}
	end, err := models.ParseLocalTime(w.EndDate)
	if err != nil {
		return nil, fmt.Errorf("request %s: end: %w", w.ID, err)
	}
	createdAt, err := models.ParseLocalTime(w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("request %s: createdAt: %w", w.ID, err)
	}

	req := &models.Request{
		ID:            w.ID,
		RequesterID:   w.RequesterID,
		RequesterName: w.RequesterName,
		ResourceName:  w.ResourceName,
		SubcategoryID: w.SubcategoryID,
		Window:        models.Window{Start: start, End: end},
		Environment:   w.Environment,
		TicketNumber:  w.TicketNumber,
		Status:        status,
		CreatedAt:     createdAt,
	}
	// The backend has no explicit kind field; a space reference decides.
	if w.SpaceID != "" {
		req.Kind = models.KindSpace
		req.SpaceID = w.SpaceID
		req.SpaceName = w.SpaceName
	} else {
		req.Kind = models.KindEquipment
		req.ResourceRefs = append([]string(nil), w.ResourceRefs...)
		req.Quantity = w.Quantity
		req.Category = models.EquipmentCategory(w.Category)
		if req.Category == "" {
			req.Category = models.CategoryGeneral
		}
	}
	return req, nil
}

func encodeDraft(d models.Draft) wireDraft {
	w := wireDraft{
		RequesterID:   d.RequesterID,
		RequesterName: d.RequesterName,
		SubcategoryID: d.SubcategoryID,
		StartDate:     d.Window.Start.String(),
		EndDate:       d.Window.End.String(),
		Environment:   d.Environment,
		TicketNumber:  d.TicketNumber,
	}
	if d.Kind == models.KindSpace {
		w.SpaceID = d.SpaceID
		w.SpaceName = d.SpaceName
	} else {
		w.ResourceRefs = append([]string(nil), d.ResourceRefs...)
		w.ResourceName = d.ResourceName
		w.Quantity = d.Quantity
		w.Category = string(d.Category)
	}
	return w
}
