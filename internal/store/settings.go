package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/erazemk/knjiznica/internal/model"
)

// Lending-policy override keys in the settings table. Absent keys fall
// back to model.DefaultPolicy.
const (
	settingLoanPeriodDays  = "loan_period_days"
	settingRenewalDays     = "renewal_days"
	settingMaxRenewals     = "max_renewals"
	settingMaxOpenLoans    = "max_open_loans"
	settingFineDailyCents  = "fine_daily_cents"
	settingRequireApproval = "require_approval"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// LoadPolicy returns the lending policy for this deployment: the defaults
// with any persisted overrides applied on top.
func LoadPolicy(ctx context.Context, db *sql.DB) (model.Policy, error) {
	policy := model.DefaultPolicy()

	rows, err := db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key IN (?, ?, ?, ?, ?, ?)`,
		settingLoanPeriodDays, settingRenewalDays, settingMaxRenewals,
		settingMaxOpenLoans, settingFineDailyCents, settingRequireApproval,
	)
	if err != nil {
		return policy, fmt.Errorf("loading policy: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return policy, fmt.Errorf("scanning policy setting: %w", err)
		}
		if err := applyPolicySetting(&policy, key, value); err != nil {
			return policy, err
		}
	}
	return policy, rows.Err()
}

// SavePolicy persists the policy values as settings overrides.
func SavePolicy(ctx context.Context, db *sql.DB, policy model.Policy) error {
	values := map[string]string{
		settingLoanPeriodDays:  strconv.Itoa(policy.LoanPeriodDays),
		settingRenewalDays:     strconv.Itoa(policy.RenewalDays),
		settingMaxRenewals:     strconv.Itoa(policy.MaxRenewals),
		settingMaxOpenLoans:    strconv.Itoa(policy.MaxOpenLoans),
		settingFineDailyCents:  strconv.FormatInt(policy.FineDailyCents, 10),
		settingRequireApproval: strconv.FormatBool(policy.RequireApproval),
	}
	for key, value := range values {
		_, err := db.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("saving policy setting %s: %w", key, err)
		}
	}
	return nil
}

func applyPolicySetting(policy *model.Policy, key, value string) error {
	switch key {
	case settingRequireApproval:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s setting %q: %w", key, value, err)
		}
		policy.RequireApproval = b
		return nil
	case settingFineDailyCents:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s setting %q", key, value)
		}
		policy.FineDailyCents = n
		return nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid %s setting %q", key, value)
	}
	switch key {
	case settingLoanPeriodDays:
		policy.LoanPeriodDays = n
	case settingRenewalDays:
		policy.RenewalDays = n
	case settingMaxRenewals:
		policy.MaxRenewals = n
	case settingMaxOpenLoans:
		policy.MaxOpenLoans = n
	}
	return nil
}
