// Package paymentid generates collision-resistant payment identifiers.
package paymentid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix    = "payment"
	suffixLen = 12
)

// New returns a payment id of the form payment_<unix-ms>_<random>.
// The millisecond prefix keeps ids roughly sortable by creation time; the
// random suffix makes concurrent creations collision-resistant.
func New(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}
