package service

import (
	"strings"
	"sync"

	"github.com/prestago/loans-api/internal/models"
)

// FilterEngine derives the visible subset of a request collection and slices
// it into pages. Selection is pure; the only state the engine keeps is the
// last filter fingerprint per caller, so that any filter change resets the
// page to 1 centrally instead of in every screen.
type FilterEngine struct {
	pageSize int

	mu   sync.Mutex
	last map[string]string
}

// NewFilterEngine builds an engine with the given default page size.
func NewFilterEngine(pageSize int) *FilterEngine {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &FilterEngine{pageSize: pageSize, last: make(map[string]string)}
}

// PageSize returns the configured page size.
func (e *FilterEngine) PageSize() int { return e.pageSize }

// Apply returns the requests matching every set criterion, preserving order.
func (e *FilterEngine) Apply(requests []*models.Request, filter models.RequestFilter) []*models.Request {
	out := make([]*models.Request, 0, len(requests))
	for _, req := range requests {
		if matches(req, filter) {
			out = append(out, req)
		}
	}
	return out
}

// Query filters the collection and returns the requested page for the caller.
// When the caller's filter differs from their previous one, the page resets
// to 1; an out-of-range page clamps to the nearest bound.
func (e *FilterEngine) Query(callerKey string, requests []*models.Request, filter models.RequestFilter, page int) ([]*models.Request, models.Pagination) {
	fingerprint := filter.Fingerprint()
	e.mu.Lock()
	if prev, ok := e.last[callerKey]; !ok || prev != fingerprint {
		page = 1
	}
	e.last[callerKey] = fingerprint
	e.mu.Unlock()

	return e.Page(e.Apply(requests, filter), page)
}

// Page slices the filtered set. totalPages is at least 1 even for an empty
// set, and concatenating pages 1..totalPages yields every item exactly once.
func (e *FilterEngine) Page(filtered []*models.Request, page int) ([]*models.Request, models.Pagination) {
	total := len(filtered)
	totalPages := (total + e.pageSize - 1) / e.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * e.pageSize
	end := start + e.pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return filtered[start:end], models.Pagination{
		Page:       page,
		PageSize:   e.pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}
}

func matches(req *models.Request, filter models.RequestFilter) bool {
	if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
		return false
	}

	switch filter.Class {
	case models.ClassEquipment:
		if req.Kind != models.KindEquipment {
			return false
		}
	case models.ClassSpace:
		if req.Kind != models.KindSpace {
			return false
		}
	}

	// Subcategory only narrows equipment listings.
	if filter.SubcategoryID != "" && filter.Class != models.ClassSpace {
		if req.SubcategoryID != filter.SubcategoryID {
			return false
		}
	}

	if !filter.DateFrom.IsZero() && req.Window.Start.Before(filter.DateFrom) {
		return false
	}
	if !filter.DateTo.IsZero() && req.Window.Start.After(filter.DateTo) {
		return false
	}

	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if req.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(filter.TextQuery)); q != "" {
		haystack := strings.ToLower(req.ResourceName + " " + req.RequesterName + " " + req.SpaceName)
		if !strings.Contains(haystack, q) {
			return false
		}
	}

	return true
}
