package cli

import (
	"maps"
	"slices"
)

// NamesByID returns the names of an id→name mapping ordered by id, which is
// the order the profiles were added in.
func NamesByID(byID map[int64]string) []string {
	names := make([]string, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		names = append(names, byID[id])
	}
	return names
}
