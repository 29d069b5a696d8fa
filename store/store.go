// Package store owns all SQL. Multi-row writes that must be atomic run in a
// single transaction; everything else is one statement.
package store

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrMetadataMismatch means the provider's payment does not reference the
	// order this record is linked to. That is an integrity violation, not a
	// transient failure: the status is never written when it occurs.
	ErrMetadataMismatch = errors.New("provider payment metadata does not match order")
)

// orderClause maps a caller-supplied ordering key onto a whitelisted SQL
// fragment. Unknown keys fall back to the default.
func orderClause(key string, allowed map[string]string, def string) string {
	if clause, ok := allowed[key]; ok {
		return clause
	}
	return def
}
