// Package merging computes non-destructive enrichment updates when an
// incoming tradeline matches a stored one.
package merging

import (
	"github.com/Ramsey-B/clover/pkg/models"
)

// Enricher fills gaps in a stored tradeline from a matching incoming one.
// Populated fields on the stored side are never overwritten; a stored $0
// balance counts as populated.
type Enricher struct{}

// NewEnricher creates an Enricher.
func NewEnricher() *Enricher {
	return &Enricher{}
}

// ComputeUpdate returns the minimal diff that enriches the existing
// tradeline from the incoming one, or nil when nothing would change.
//
// Fillable fields (balance, credit limit, monthly payment, status, type,
// bureau, opened date) copy over only when the existing side is empty.
// is_negative upgrades false to true and never downgrades. dispute_count
// only ever increases.
func (e *Enricher) ComputeUpdate(existing, incoming *models.Tradeline) *models.TradelineUpdate {
	update := &models.TradelineUpdate{}

	if !existing.AccountBalance.IsSet() && incoming.AccountBalance.IsSet() {
		v := incoming.AccountBalance
		update.AccountBalance = &v
	}
	if !existing.CreditLimit.IsSet() && incoming.CreditLimit.IsSet() {
		v := incoming.CreditLimit
		update.CreditLimit = &v
	}
	if !existing.MonthlyPayment.IsSet() && incoming.MonthlyPayment.IsSet() {
		v := incoming.MonthlyPayment
		update.MonthlyPayment = &v
	}
	if existing.AccountStatus == "" && incoming.AccountStatus != "" {
		v := incoming.AccountStatus
		update.AccountStatus = &v
	}
	if existing.AccountType == "" && incoming.AccountType != "" {
		v := incoming.AccountType
		update.AccountType = &v
	}
	if !existing.CreditBureau.IsKnown() && incoming.CreditBureau.IsKnown() {
		v := incoming.CreditBureau
		update.CreditBureau = &v
	}
	if existing.DateOpened == nil && incoming.DateOpened != nil {
		v := *incoming.DateOpened
		update.DateOpened = &v
	}
	if !existing.IsNegative && incoming.IsNegative {
		v := true
		update.IsNegative = &v
	}
	if incoming.DisputeCount > existing.DisputeCount {
		v := incoming.DisputeCount
		update.DisputeCount = &v
	}

	if update.IsEmpty() {
		return nil
	}
	return update
}
