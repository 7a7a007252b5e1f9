package db

import "strings"

// IsUniqueViolation reports whether the error is a Postgres unique-index
// violation. The orders table relies on this for the exchange_code and
// razorpay_order_id uniqueness races: callers pass the constraint name to
// match one index specifically, or an empty string to match any duplicate.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
