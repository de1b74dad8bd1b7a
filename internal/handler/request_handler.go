package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prestago/loans-api/internal/dto"
	"github.com/prestago/loans-api/internal/middleware"
	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/internal/service"
	appErrors "github.com/prestago/loans-api/pkg/errors"
	"github.com/prestago/loans-api/pkg/export"
	"github.com/prestago/loans-api/pkg/response"
)

type requestService interface {
	List(ctx context.Context, query dto.RequestQuery, claims *models.JWTClaims) ([]*models.Request, *models.Pagination, error)
	Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Request, error)
	Create(ctx context.Context, input dto.CreateLoanRequest, claims *models.JWTClaims) (*models.Request, error)
	Transition(ctx context.Context, id string, input dto.TransitionRequest, claims *models.JWTClaims) (*models.Request, error)
	Sweep(ctx context.Context, claims *models.JWTClaims) (*service.SweepReport, error)
	ExportDataset(ctx context.Context, query dto.RequestQuery, claims *models.JWTClaims) (export.Dataset, error)
}

// RequestHandler exposes the loan request lifecycle over REST.
type RequestHandler struct {
	service requestService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{
		service: service,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// List godoc
// @Summary List loan requests
// @Tags Requests
// @Produce json
// @Param search query string false "Text query over resource, requester, and space names"
// @Param class query string false "ALL, EQUIPMENT, or SPACE"
// @Param subcategory_id query string false "Equipment subcategory"
// @Param date_from query string false "Inclusive window-start lower bound"
// @Param date_to query string false "Inclusive window-start upper bound"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "1-based page number"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := queryFromContext(c)
	items, pagination, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one loan request
// @Tags Requests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Create godoc
// @Summary Submit a loan request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan request draft"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var input dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid loan request payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), input, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Transition godoc
// @Summary Apply a lifecycle transition
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/transition [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var input dto.TransitionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
		return
	}
	updated, err := h.service.Transition(c.Request.Context(), c.Param("id"), input, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Sweep godoc
// @Summary Cancel expired pending requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/sweep [post]
func (h *RequestHandler) Sweep(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.service.Sweep(c.Request.Context(), claims)
	if err != nil {
		// Partial failures still carry a usable report.
		if report != nil && appErrors.HasCode(err, appErrors.ErrSweepPartialFailure) {
			response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{
				"warning": appErrors.FromError(err).Message,
			})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export filtered request history
// @Tags Requests
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /requests/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	dataset, err := h.service.ExportDataset(c.Request.Context(), queryFromContext(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "pdf":
		payload, err := h.pdf.Render(dataset, "loan request history")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="requests.pdf"`)
		c.Data(http.StatusOK, "application/pdf", payload)
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="requests.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

func queryFromContext(c *gin.Context) dto.RequestQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return dto.RequestQuery{
		Search:        strings.TrimSpace(c.Query("search")),
		Class:         c.Query("class"),
		SubcategoryID: c.Query("subcategory_id"),
		DateFrom:      c.Query("date_from"),
		DateTo:        c.Query("date_to"),
		Status:        c.Query("status"),
		Page:          page,
	}
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
