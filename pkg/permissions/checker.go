// Package permissions matches the permission grants carried by a caller
// against the permission a route requires.
//
// A grant is either an exact permission ("attendance.read"), a subtree
// ("attendance.*" grants every permission below attendance), or "*".
package permissions

import "strings"

const (
	AttendanceRead              = "attendance.read"
	AttendanceSettingsWrite     = "attendance.settings.write"
	AttendanceAdjustmentsReview = "attendance.adjustments.review"
)

// HasPermission reports whether any of grants covers required. An empty
// requirement is always met.
func HasPermission(grants []string, required string) bool {
	if required == "" {
		return true
	}
	for _, grant := range grants {
		if covers(grant, required) {
			return true
		}
	}
	return false
}

func covers(grant, required string) bool {
	if grant == "*" || grant == required {
		return true
	}
	subtree, ok := strings.CutSuffix(grant, "*")
	return ok && strings.HasSuffix(subtree, ".") && strings.HasPrefix(required, subtree)
}

// Parse splits a comma separated header value such as X-User-Permissions
func Parse(header string) []string {
	var grants []string
	for _, p := range strings.Split(header, ",") {
		if p = strings.TrimSpace(p); p != "" {
			grants = append(grants, p)
		}
	}
	return grants
}
