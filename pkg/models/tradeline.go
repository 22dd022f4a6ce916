package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bureau identifies the credit bureau that reported a tradeline
type Bureau string

const (
	BureauEquifax    Bureau = "equifax"
	BureauTransUnion Bureau = "transunion"
	BureauExperian   Bureau = "experian"
	BureauUnknown    Bureau = ""
)

// ParseBureau maps free-text bureau names onto the closed bureau set.
// Unrecognized values map to BureauUnknown rather than failing.
func ParseBureau(s string) Bureau {
	switch normalizeEnum(s) {
	case "equifax", "eqf", "efx":
		return BureauEquifax
	case "transunion", "trans union", "tu", "tuc":
		return BureauTransUnion
	case "experian", "exp", "xpn":
		return BureauExperian
	default:
		return BureauUnknown
	}
}

// IsKnown reports whether the bureau is one of the three known bureaus.
func (b Bureau) IsKnown() bool {
	return b == BureauEquifax || b == BureauTransUnion || b == BureauExperian
}

// AccountStatus is the reported status of a tradeline, mapped onto a small
// closed vocabulary. Values outside the vocabulary are kept as StatusUnknown.
type AccountStatus string

const (
	StatusOpen         AccountStatus = "open"
	StatusCurrent      AccountStatus = "current"
	StatusClosed       AccountStatus = "closed"
	StatusPaidClosed   AccountStatus = "paid-closed"
	StatusLate         AccountStatus = "late"
	StatusInCollection AccountStatus = "in-collection"
	StatusChargedOff   AccountStatus = "charged-off"
	StatusDisputed     AccountStatus = "disputed"
	StatusUnknown      AccountStatus = ""
)

// ParseAccountStatus maps free-text status strings onto the status vocabulary.
func ParseAccountStatus(s string) AccountStatus {
	switch normalizeEnum(s) {
	case "open":
		return StatusOpen
	case "current", "pays as agreed", "paid as agreed", "ok":
		return StatusCurrent
	case "closed":
		return StatusClosed
	case "paid-closed", "paid closed", "paid, closed", "paid":
		return StatusPaidClosed
	case "late", "past due", "delinquent", "30 days late", "60 days late", "90 days late":
		return StatusLate
	case "in-collection", "in collection", "collection", "collections":
		return StatusInCollection
	case "charged-off", "charge-off", "charge off", "charged off", "chargeoff":
		return StatusChargedOff
	case "disputed", "in dispute", "dispute":
		return StatusDisputed
	default:
		return StatusUnknown
	}
}

// IsNegative reports whether the status is derogatory on its own.
func (s AccountStatus) IsNegative() bool {
	switch s {
	case StatusLate, StatusInCollection, StatusChargedOff:
		return true
	}
	return false
}

// AccountType classifies the kind of account a tradeline represents.
type AccountType string

const (
	TypeCreditCard  AccountType = "credit-card"
	TypeLoan        AccountType = "loan"
	TypeMortgage    AccountType = "mortgage"
	TypeAutoLoan    AccountType = "auto-loan"
	TypeStudentLoan AccountType = "student-loan"
	TypeCollection  AccountType = "collection"
	TypeUnknown     AccountType = ""
)

// ParseAccountType maps free-text type strings onto the type vocabulary.
func ParseAccountType(s string) AccountType {
	switch normalizeEnum(s) {
	case "credit-card", "credit card", "creditcard", "revolving", "cc", "charge card", "bank card":
		return TypeCreditCard
	case "loan", "installment", "personal loan", "unsecured loan":
		return TypeLoan
	case "mortgage", "home loan", "real estate", "heloc":
		return TypeMortgage
	case "auto-loan", "auto loan", "auto", "vehicle loan", "car loan":
		return TypeAutoLoan
	case "student-loan", "student loan", "education", "education loan":
		return TypeStudentLoan
	case "collection", "collection account", "debt collection":
		return TypeCollection
	default:
		return TypeUnknown
	}
}

// Money is a non-negative monetary amount with a distinct unset state.
// A reported $0 is set-zero, which is not the same as unset: enrichment
// only fills unset fields, so a genuine zero balance is never overwritten.
type Money struct {
	decimal.NullDecimal
}

// NewMoney returns a set Money value.
func NewMoney(d decimal.Decimal) Money {
	return Money{decimal.NullDecimal{Decimal: d, Valid: true}}
}

// UnsetMoney returns the unset sentinel.
func UnsetMoney() Money {
	return Money{}
}

// IsSet reports whether the amount was actually reported.
func (m Money) IsSet() bool {
	return m.Valid
}

// Equal compares two Money values; two unset values are equal.
func (m Money) Equal(other Money) bool {
	if m.Valid != other.Valid {
		return false
	}
	if !m.Valid {
		return true
	}
	return m.Decimal.Equal(other.Decimal)
}

func (m Money) String() string {
	if !m.Valid {
		return "unset"
	}
	return m.Decimal.String()
}

// Tradeline is one account as reported by one bureau, owned by exactly one user.
// Semantic uniqueness per (owner, creditor, account, bureau) cluster is enforced
// by the matching engine; the fingerprint unique index is only a last-resort
// guard against concurrent-batch races.
type Tradeline struct {
	ID             string         `json:"id" db:"id"`
	OwnerID        string         `json:"owner_id" db:"owner_id"`
	CreditorName   string         `json:"creditor_name" db:"creditor_name"`
	AccountNumber  string         `json:"account_number" db:"account_number"`
	DateOpened     *time.Time     `json:"date_opened,omitempty" db:"date_opened"`
	CreditBureau   Bureau         `json:"credit_bureau" db:"credit_bureau"`
	AccountStatus  AccountStatus  `json:"account_status" db:"account_status"`
	AccountType    AccountType    `json:"account_type" db:"account_type"`
	AccountBalance Money          `json:"account_balance" db:"account_balance"`
	CreditLimit    Money          `json:"credit_limit" db:"credit_limit"`
	MonthlyPayment Money          `json:"monthly_payment" db:"monthly_payment"`
	IsNegative     bool           `json:"is_negative" db:"is_negative"`
	DisputeCount   int            `json:"dispute_count" db:"dispute_count"`
	Fingerprint    string         `json:"fingerprint" db:"fingerprint"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// RawTradeline is one line item as extracted from a report PDF. Everything is
// a string because the OCR layer makes no promises; empty string means the
// field was not captured.
type RawTradeline struct {
	CreditorName   string `json:"creditor_name"`
	AccountNumber  string `json:"account_number"`
	AccountBalance string `json:"account_balance"`
	AccountStatus  string `json:"account_status"`
	AccountType    string `json:"account_type"`
	DateOpened     string `json:"date_opened"`
	CreditLimit    string `json:"credit_limit"`
	CreditBureau   string `json:"credit_bureau"`
	MonthlyPayment string `json:"monthly_payment"`
	IsNegative     bool   `json:"is_negative,omitempty"`
	DisputeCount   int    `json:"dispute_count,omitempty"`
}

// TradelineUpdate is a partial update computed by the enrichment merger.
// Nil pointer fields are untouched; only the minimal diff is written.
type TradelineUpdate struct {
	AccountBalance *Money         `json:"account_balance,omitempty"`
	CreditLimit    *Money         `json:"credit_limit,omitempty"`
	MonthlyPayment *Money         `json:"monthly_payment,omitempty"`
	AccountStatus  *AccountStatus `json:"account_status,omitempty"`
	AccountType    *AccountType   `json:"account_type,omitempty"`
	CreditBureau   *Bureau        `json:"credit_bureau,omitempty"`
	DateOpened     *time.Time     `json:"date_opened,omitempty"`
	IsNegative     *bool          `json:"is_negative,omitempty"`
	DisputeCount   *int           `json:"dispute_count,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u *TradelineUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.AccountBalance == nil &&
		u.CreditLimit == nil &&
		u.MonthlyPayment == nil &&
		u.AccountStatus == nil &&
		u.AccountType == nil &&
		u.CreditBureau == nil &&
		u.DateOpened == nil &&
		u.IsNegative == nil &&
		u.DisputeCount == nil
}

// Apply returns a copy of the tradeline with the update applied.
func (u *TradelineUpdate) Apply(t Tradeline) Tradeline {
	if u == nil {
		return t
	}
	if u.AccountBalance != nil {
		t.AccountBalance = *u.AccountBalance
	}
	if u.CreditLimit != nil {
		t.CreditLimit = *u.CreditLimit
	}
	if u.MonthlyPayment != nil {
		t.MonthlyPayment = *u.MonthlyPayment
	}
	if u.AccountStatus != nil {
		t.AccountStatus = *u.AccountStatus
	}
	if u.AccountType != nil {
		t.AccountType = *u.AccountType
	}
	if u.CreditBureau != nil {
		t.CreditBureau = *u.CreditBureau
	}
	if u.DateOpened != nil {
		t.DateOpened = u.DateOpened
	}
	if u.IsNegative != nil {
		t.IsNegative = *u.IsNegative
	}
	if u.DisputeCount != nil {
		t.DisputeCount = *u.DisputeCount
	}
	return t
}
