package workspace

import (
	"fmt"
	"regexp"

	"github.com/hostplane/controlplane/internal/apperr"
)

const maxNameLength = 100

var namePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// validateName enforces spec §3: alnum/space/dash/underscore, <=100 chars.
// Uniqueness per owner is enforced by the database constraint and
// surfaced by the repository as apperr.Conflict.
func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return apperr.New(apperr.Validation, fmt.Sprintf("name must be 1-%d characters", maxNameLength))
	}
	if !namePattern.MatchString(name) {
		return apperr.New(apperr.Validation, "name may contain only letters, digits, spaces, dashes and underscores")
	}
	return nil
}
