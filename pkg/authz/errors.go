package authz

import (
	"fmt"

	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

const (
	errorCodeForbidden = "AUTHZ_FORBIDDEN"
	errorLocaleKey     = "Authorization.PermissionDenied"
)

// ErrForbidden matches every denial returned by Service.Authorize under errors.Is.
var ErrForbidden = serrors.NewError(errorCodeForbidden, "permission denied", errorLocaleKey)

// forbiddenError builds a standardized error for denied policies.
func forbiddenError(req Request) error {
	return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, req.Subject, req.Action, req.Object)
}
