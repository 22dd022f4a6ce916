// Package tradeline exposes the owner-scoped tradeline API: listing,
// lookup, and synchronous batch processing.
package tradeline

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	tradelinerepo "github.com/Ramsey-B/clover/internal/repositories/tradeline"
	"github.com/Ramsey-B/clover/pkg/appcontext"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var validate = validator.New()

// Register registers tradeline routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.POST("/batch", ProcessBatch)
}

// ListResponse wraps the owner's tradelines.
type ListResponse struct {
	Items      []models.Tradeline `json:"items"`
	TotalCount int                `json:"total_count"`
}

// List returns every tradeline for the requesting owner
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "tradeline_handler.List")
	defer span.End()

	ownerID := appcontext.GetOwnerID(ctx)
	if ownerID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*tradelinerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Get returns a single tradeline by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "tradeline_handler.Get")
	defer span.End()

	ownerID := appcontext.GetOwnerID(ctx)
	if ownerID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*tradelinerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	t, err := repo.Get(ctx, ownerID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, t)
}

// ProcessBatchRequest carries one extracted document's line items.
type ProcessBatchRequest struct {
	DocumentID string                `json:"document_id"`
	Tradelines []models.RawTradeline `json:"tradelines" validate:"required,min=1"`
}

// ProcessBatch runs a batch of raw tradelines through the dedupe pipeline
// and returns the outcome counts
func ProcessBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "tradeline_handler.ProcessBatch")
	defer span.End()

	ownerID := appcontext.GetOwnerID(ctx)
	if ownerID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	var req ProcessBatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get processor")
	}

	result, err := proc.ProcessBatch(ctx, ownerID, req.DocumentID, req.Tradelines)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
