package profile

import (
	"fmt"
	"regexp"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name conforms to profile naming rules. Profile
// names double as directory names, so they stay lowercase slug-ish.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}
