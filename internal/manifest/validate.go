package manifest

import (
	"errors"
	"fmt"
)

// Validate checks unit ids are present and unique.
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[string]int, len(m.Units))
	for i, u := range m.Units {
		if u.ID == "" {
			errs = append(errs, fmt.Errorf("units[%d]: id is required", i))
			continue
		}
		if prev, ok := seen[u.ID]; ok {
			errs = append(errs, fmt.Errorf("units[%d]: id %q already used by units[%d]", i, u.ID, prev))
			continue
		}
		seen[u.ID] = i
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid manifest: %w", errors.Join(errs...))
	}
	return nil
}
