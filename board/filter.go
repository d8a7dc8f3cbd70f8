// ABOUTME: Pure deal filtering by free-text search and contact attributes
// ABOUTME: All present criteria are ANDed; deals without a contact fail contact criteria
package board

import (
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

// Filter returns the deals matching every present criterion. With no
// criteria the input slice itself is returned.
func Filter(deals []models.Deal, c models.FilterCriteria) []models.Deal {
	if !c.HasFilters() {
		return deals
	}

	search := strings.ToLower(strings.TrimSpace(c.Search))
	company := strings.TrimSpace(c.Company)
	status := strings.TrimSpace(c.Status)

	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if search != "" && !matchesSearch(d, search) {
			continue
		}
		if company != "" && (d.Contact == nil || !strings.EqualFold(d.Contact.Company, company)) {
			continue
		}
		if status != "" && (d.Contact == nil || !strings.EqualFold(d.Contact.Status, status)) {
			continue
		}
		if c.TagID != uuid.Nil && (d.Contact == nil || !d.Contact.HasTag(c.TagID)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// matchesSearch expects needle already lowercased.
func matchesSearch(d models.Deal, needle string) bool {
	if strings.Contains(strings.ToLower(d.Title), needle) {
		return true
	}
	if d.Contact == nil {
		return false
	}
	return strings.Contains(strings.ToLower(d.Contact.Name), needle) ||
		strings.Contains(strings.ToLower(d.Contact.Company), needle)
}
