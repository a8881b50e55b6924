package targeting

import (
	"strings"

	"golang.org/x/text/cases"
)

// Apply returns the contacts matching every active dimension of criteria, in input
// order. With no active dimension the input is returned as is. Apply never mutates
// its arguments and is safe for concurrent use.
func Apply(contacts []Contact, criteria FilterCriteria) []Contact {
	if len(contacts) == 0 {
		return []Contact{}
	}
	if !criteria.Active() {
		return contacts
	}

	m := newMatcher(criteria)
	out := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		if m.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Matches evaluates a single contact against criteria.
func Matches(c Contact, criteria FilterCriteria) bool {
	return newMatcher(criteria).match(c)
}

type matcher struct {
	criteria FilterCriteria
	folder   cases.Caser
	search   string
}

func newMatcher(criteria FilterCriteria) matcher {
	m := matcher{criteria: criteria, folder: cases.Fold()}
	if criteria.Search != "" {
		m.search = m.folder.String(strings.TrimSpace(criteria.Search))
	}
	return m
}

func (m matcher) match(c Contact) bool {
	f := m.criteria
	return matchRange(f.VehicleAge, c.VehicleAge) &&
		matchRange(f.Mileage, c.Mileage) &&
		(f.WarrantyStatus == "" || c.WarrantyStatus == f.WarrantyStatus) &&
		(f.LoyaltyTier == "" || c.LoyaltyTier == f.LoyaltyTier) &&
		(f.Tag == "" || c.HasTag(f.Tag)) &&
		m.matchSearch(c)
}

// matchRange excludes contacts with the field absent whenever the range is set.
func matchRange(r *Range, v *int) bool {
	if r == nil {
		return true
	}
	if v == nil {
		return false
	}
	return r.Contains(*v)
}

func (m matcher) matchSearch(c Contact) bool {
	if m.search == "" {
		return true
	}
	return strings.Contains(m.folder.String(c.Name), m.search) ||
		strings.Contains(m.folder.String(c.Email), m.search) ||
		strings.Contains(c.Phone, strings.TrimSpace(m.criteria.Search))
}
