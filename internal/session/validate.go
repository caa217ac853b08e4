package session

import (
	"fmt"
	"regexp"
)

// Names start with a letter, digit or underscore so they can never be
// mistaken for a flag when passed to buddyd.
var nameRegexp = regexp.MustCompile(`^[a-z0-9_][a-z0-9_-]{0,63}$`)

// ValidateName checks that name is usable as a session directory and socket name.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use up to 64 of a-z, 0-9, '_' and '-', not starting with '-'", name)
	}
	return nil
}
