package service

import (
	"fmt"

	"github.com/prestago/loans-api/internal/models"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// The legal lifecycle edges and who may take them. Every screen used to carry
// its own inline subset of this table; it lives here once, and only here.
//
// Cancellation is reachable from PENDING only. Some legacy call sites implied
// APPROVED -> CANCELLED; the backend contract does not, so the edge is absent.
type edge struct {
	from models.Status
	to   models.Status
}

var transitionRoles = map[edge][]models.UserRole{
	{models.StatusPending, models.StatusApproved}:  {models.RoleTechnician, models.RoleAdmin},
	{models.StatusPending, models.StatusRejected}:  {models.RoleTechnician, models.RoleAdmin},
	{models.StatusPending, models.StatusCancelled}: {models.RoleInstructor, models.RoleSystem},
	{models.StatusApproved, models.StatusFinished}: {models.RoleTechnician, models.RoleAdmin},
}

// CanTransition reports whether the requested status change is legal for the
// actor's role. It is a pure function over the edge table; any pair not in
// the table is illegal. A same-status re-apply is always allowed.
func CanTransition(current, requested models.Status, role models.UserRole) bool {
	if current == requested {
		return true
	}
	roles, ok := transitionRoles[edge{from: current, to: requested}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CheckTransition validates an edge and names it in the error on rejection.
func CheckTransition(current, requested models.Status, role models.UserRole) error {
	if !requested.Valid() {
		return appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("unknown target status %q", requested))
	}
	if !CanTransition(current, requested, role) {
		return appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("transition %s to %s not permitted for role %s", current, requested, role))
	}
	return nil
}

// CheckApproval re-validates the quantity cap on PENDING -> APPROVED. The
// quantity may have been edited while the request sat pending, so approval
// cannot trust the creation-time check.
func CheckApproval(req *models.Request) error {
	if req.Kind != models.KindEquipment {
		return nil
	}
	return models.CheckQuantity(req.Category, req.Quantity)
}
