// Package tradeline handles tradeline persistence. All reads and writes
// are scoped to a single owner.
package tradeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "tradelines"

// maxCandidateTokens caps the creditor tokens used for candidate lookup;
// retrieval only needs recall, the match engine does the precision work.
const maxCandidateTokens = 3

var columns = []string{
	"id", "owner_id", "creditor_name", "account_number", "date_opened",
	"credit_bureau", "account_status", "account_type", "account_balance",
	"credit_limit", "monthly_payment", "is_negative", "dispute_count",
	"fingerprint", "created_at", "updated_at",
}

// Repository handles tradeline persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new tradeline repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CandidateQuery narrows the candidate scan for one incoming tradeline.
// Tokens are matched as substrings of the stored creditor name; the
// account prefix matches stored account numbers that share leading digits.
type CandidateQuery struct {
	CreditorTokens []string
	AccountPrefix  string
}

// FindCandidates returns stored tradelines for the owner that plausibly
// describe the same account as the incoming one. The result over-fetches;
// the match engine decides. An empty query falls back to the full owner
// scan so a weird creditor name can never hide a duplicate.
func (r *Repository) FindCandidates(ctx context.Context, ownerID string, q CandidateQuery) ([]models.Tradeline, error) {
	ctx, span := tracing.StartSpan(ctx, "tradeline.Repository.FindCandidates")
	defer span.End()

	tokens := q.CreditorTokens
	if len(tokens) > maxCandidateTokens {
		tokens = tokens[:maxCandidateTokens]
	}

	if len(tokens) == 0 && q.AccountPrefix == "" {
		return r.ListByOwner(ctx, ownerID)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)

	conds := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		conds = append(conds, sb.Like("LOWER(creditor_name)", "%"+strings.ToLower(token)+"%"))
	}
	if q.AccountPrefix != "" {
		conds = append(conds, sb.Like("account_number", q.AccountPrefix+"%"))
	}

	sb.Where(
		sb.Equal("owner_id", ownerID),
		sb.Or(conds...),
	)
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var tradelines []models.Tradeline
	if err := r.db.SelectContext(ctx, &tradelines, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_id": ownerID}).Error("Failed to find candidate tradelines, falling back to owner scan")
		return r.ListByOwner(ctx, ownerID)
	}
	return tradelines, nil
}

// ListByOwner returns every tradeline for the owner, oldest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]models.Tradeline, error) {
	ctx, span := tracing.StartSpan(ctx, "tradeline.Repository.ListByOwner")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("owner_id", ownerID))
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var tradelines []models.Tradeline
	if err := r.db.SelectContext(ctx, &tradelines, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_id": ownerID}).Error("Failed to list tradelines")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tradelines")
	}
	return tradelines, nil
}

// Get retrieves a tradeline by ID, scoped to the owner.
func (r *Repository) Get(ctx context.Context, ownerID, id string) (*models.Tradeline, error) {
	ctx, span := tracing.StartSpan(ctx, "tradeline.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("owner_id", ownerID),
		sb.Equal("id", id),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var t models.Tradeline
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "tradeline not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_id": ownerID, "id": id}).Error("Failed to get tradeline")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get tradeline")
	}
	return &t, nil
}

// CreateBatch inserts new tradelines in one statement. Rows that collide
// on (owner_id, fingerprint) are silently skipped; the returned IDs are
// the rows actually written. Timestamps and fingerprints must already be
// populated by the caller.
func (r *Repository) CreateBatch(ctx context.Context, tradelines []models.Tradeline) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "tradeline.Repository.CreateBatch")
	defer span.End()

	if len(tradelines) == 0 {
		return nil, nil
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	for _, t := range tradelines {
		ib.Values(
			t.ID, t.OwnerID, t.CreditorName, t.AccountNumber, t.DateOpened,
			t.CreditBureau, t.AccountStatus, t.AccountType, t.AccountBalance,
			t.CreditLimit, t.MonthlyPayment, t.IsNegative, t.DisputeCount,
			t.Fingerprint, t.CreatedAt, t.UpdatedAt,
		)
	}
	ib.OnConflictDoNothing("owner_id", "fingerprint")
	ib.Returning("id")

	query, args := ib.Build()
	var insertedIDs []string
	if err := r.db.SelectContext(ctx, &insertedIDs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_id": tradelines[0].OwnerID, "count": len(tradelines)}).Error("Failed to insert tradelines")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert tradelines")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"owner_id": tradelines[0].OwnerID,
		"inserted": len(insertedIDs),
		"skipped":  len(tradelines) - len(insertedIDs),
	}).Debug("Inserted tradeline batch")

	return insertedIDs, nil
}

// Update applies a partial enrichment update to one tradeline. A nil or
// empty update is a no-op.
func (r *Repository) Update(ctx context.Context, ownerID, id string, update *models.TradelineUpdate) error {
	ctx, span := tracing.StartSpan(ctx, "tradeline.Repository.Update")
	defer span.End()

	if update.IsEmpty() {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)

	assignments := []string{ub.Assign("updated_at", time.Now().UTC())}
	if update.AccountBalance != nil {
		assignments = append(assignments, ub.Assign("account_balance", *update.AccountBalance))
	}
	if update.CreditLimit != nil {
		assignments = append(assignments, ub.Assign("credit_limit", *update.CreditLimit))
	}
	if update.MonthlyPayment != nil {
		assignments = append(assignments, ub.Assign("monthly_payment", *update.MonthlyPayment))
	}
	if update.AccountStatus != nil {
		assignments = append(assignments, ub.Assign("account_status", *update.AccountStatus))
	}
	if update.AccountType != nil {
		assignments = append(assignments, ub.Assign("account_type", *update.AccountType))
	}
	if update.CreditBureau != nil {
		assignments = append(assignments, ub.Assign("credit_bureau", *update.CreditBureau))
	}
	if update.DateOpened != nil {
		assignments = append(assignments, ub.Assign("date_opened", *update.DateOpened))
	}
	if update.IsNegative != nil {
		assignments = append(assignments, ub.Assign("is_negative", *update.IsNegative))
	}
	if update.DisputeCount != nil {
		assignments = append(assignments, ub.Assign("dispute_count", *update.DisputeCount))
	}

	ub.Set(assignments...)
	ub.Where(
		ub.Equal("owner_id", ownerID),
		ub.Equal("id", id),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_id": ownerID, "id": id}).Error("Failed to update tradeline")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update tradeline")
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "tradeline not found")
	}
	return nil
}

// CountByOwner returns the number of stored tradelines for the owner.
func (r *Repository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "tradeline.Repository.CountByOwner")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.Equal("owner_id", ownerID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_id": ownerID}).Error("Failed to count tradelines")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count tradelines")
	}
	return count, nil
}
