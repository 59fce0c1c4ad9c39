// Package numbering generates human-readable document numbers.
package numbering

import (
	"fmt"
	"strings"
	"time"

	"kardex/internal/core/id"
)

// Next returns a document number of the form PREFIX-YYYYMMDD-XXXXXXXX.
// The suffix comes from a fresh UUID, so numbers are unique without a
// database round trip. Uniqueness is still enforced by the documents
// tables.
func Next(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102"), suffix)
}
