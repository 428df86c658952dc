package collection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/iudanet/plansync/internal/models"
)

// shape sorts items by field and truncates them to limit.
// Missing values sort first in ascending order, numbers compare numerically,
// everything else by its string form.
func shape(items []models.Entity, field string, desc bool, limit int) []models.Entity {
	if field != "" {
		dir := 1
		if desc {
			dir = -1
		}
		slices.SortStableFunc(items, func(a, b models.Entity) int {
			return compareValues(a[field], b[field]) * dir
		})
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	an, aok := a.(float64)
	bn, bok := b.(float64)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
