package category

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a user-defined spending category. The import pipeline only
// reads categories; it never creates them mid-import.
type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Color     *string
	Icon      *string
	CreatedAt time.Time
}

// Resolve matches a suggested category label against the user's real
// categories. Exact name match (case-insensitive) wins over substring
// matching; substring matching checks both directions and the first match in
// list order wins. A zero UUID and false mean "uncategorized", never an
// error.
func Resolve(suggested string, categories []Category) (uuid.UUID, bool) {
	name := strings.ToLower(strings.TrimSpace(suggested))
	if name == "" {
		return uuid.Nil, false
	}

	for _, c := range categories {
		if strings.ToLower(c.Name) == name {
			return c.ID, true
		}
	}

	for _, c := range categories {
		lower := strings.ToLower(c.Name)
		if strings.Contains(lower, name) || strings.Contains(name, lower) {
			return c.ID, true
		}
	}

	return uuid.Nil, false
}
