// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/educonnect/backend/core"
)

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		terms = append(terms, ord.String())
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}
