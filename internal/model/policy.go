package model

// Policy holds the lending rules for a deployment. Defaults are defined
// here; individual values can be overridden through the settings store or
// server flags.
type Policy struct {
	// LoanPeriodDays is the initial borrowing period.
	LoanPeriodDays int `json:"loan_period_days"`
	// RenewalDays is the due-date extension granted per renewal.
	RenewalDays int `json:"renewal_days"`
	// MaxRenewals caps how many times a single loan may be renewed.
	MaxRenewals int `json:"max_renewals"`
	// MaxOpenLoans caps how many copies a user may hold at once.
	MaxOpenLoans int `json:"max_open_loans"`
	// FineDailyCents is the fine accrued per overdue day, in cents.
	FineDailyCents int64 `json:"fine_daily_cents"`
	// RequireApproval selects the workflow: when true, new loans start
	// as requested and need librarian approval before the copy is lent.
	RequireApproval bool `json:"require_approval"`
}

// DefaultPolicy returns the standard lending rules.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:  30,
		RenewalDays:     15,
		MaxRenewals:     2,
		MaxOpenLoans:    5,
		FineDailyCents:  50,
		RequireApproval: false,
	}
}
