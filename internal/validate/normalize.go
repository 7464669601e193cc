// Package validate merges and cross-validates the ensemble's extractions
// into a consensus summary and a deduplicated entity list, invoking the
// Arbitrator on conflict.
package validate

import (
	"regexp"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

var personHonorifics = []string{"Mr.", "Mrs.", "Ms.", "Dr.", "Gov.", "Sen.", "Rep.", "Hon.", "Rev.", "Prof."}
var personSuffixes = []string{"Jr.", "Sr.", "III", "II", "IV"}

var multiSpace = regexp.MustCompile(`\s+`)

// Normalize produces the canonical surface form used for merge-time
// deduplication: honorific/role-suffix stripping for PERSON, leading
// "City of"/"Town of" stripping for LOCATION, and leading "The" stripping
// for ORGANIZATION. The original surface form is preserved separately for
// storage; only the canonical form is used for equality comparison.
func Normalize(surface string, t domain.EntityType) string {
	s := multiSpace.ReplaceAllString(strings.TrimSpace(surface), " ")

	switch t {
	case domain.EntityPerson:
		for _, h := range personHonorifics {
			if s == h || strings.HasPrefix(s, h+" ") {
				s = strings.TrimSpace(strings.TrimPrefix(s, h))
			}
		}
		for _, suf := range personSuffixes {
			s = strings.TrimSpace(strings.TrimSuffix(s, suf))
			s = strings.TrimSpace(strings.TrimSuffix(s, ","))
		}
	case domain.EntityLocation:
		for _, prefix := range []string{"City of ", "Town of "} {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				break
			}
		}
	case domain.EntityOrganization:
		if strings.HasPrefix(s, "The ") {
			s = strings.TrimSpace(strings.TrimPrefix(s, "The "))
		}
	}

	return s
}

// CanonicalKey is the case-folded comparison key used to decide whether two
// mentions refer to the same entity: equal canonical surface and equal type.
func CanonicalKey(surface string, t domain.EntityType) string {
	return strings.ToLower(Normalize(surface, t)) + "|" + string(t)
}
