// Package presence derives display status strings from raw user
// records. Status is a pure function of the record and the passed-in
// clock value; it performs no I/O.
package presence

import (
	"time"

	"github.com/mymail/mymail/internal/model"
)

// Display statuses for users that are not showing a last-seen time.
const (
	StatusNeverLoggedIn = "registered, not yet authenticated"
	StatusOnline        = "online"
	StatusOffline       = "offline"
)

// officeZone is the fixed UTC+3 office timezone. Last-seen times are
// always rendered in this zone rather than the viewer's local zone:
// the deployment is a single-timezone organization.
var officeZone = time.FixedZone("UTC+3", 3*60*60)

// Status maps a user record to its human-readable presence string.
//
// Precedence: never-logged-in beats everything, then the online flag,
// then a recorded last-seen time, then plain offline. The current
// rendering is absolute (HH:MM) and does not consume now; it is part
// of the signature so relative formats can be added without changing
// callers.
func Status(u *model.User, now time.Time) string {
	switch {
	case u.NeverLoggedIn:
		return StatusNeverLoggedIn
	case u.IsOnline:
		return StatusOnline
	case u.LastSeen != nil:
		t := time.UnixMilli(*u.LastSeen).In(officeZone)
		return "last seen at " + t.Format("15:04")
	default:
		return StatusOffline
	}
}
