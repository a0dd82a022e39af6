package app

import (
	"strings"

	"github.com/google/uuid"
)

// newID returns prefix_<12 hex chars>, e.g. booking_3f2a9c01b7de.
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
