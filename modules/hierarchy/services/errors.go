package services

import (
	"fmt"
	"strings"

	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

var (
	ErrFetchSnapshot         = serrors.NewError("HIERARCHY_FETCH_SNAPSHOT", "failed to fetch designation snapshot", "Hierarchy.Errors.FetchSnapshot")
	ErrCreateDesignation     = serrors.NewError("HIERARCHY_CREATE_DESIGNATION", "failed to create designation", "Hierarchy.Errors.CreateDesignation")
	ErrUpdateDesignation     = serrors.NewError("HIERARCHY_UPDATE_DESIGNATION", "failed to update designation", "Hierarchy.Errors.UpdateDesignation")
	ErrReconciliationTimeout = serrors.NewError("HIERARCHY_RECONCILIATION_TIMEOUT", "store call timed out", "Hierarchy.Errors.Timeout")
	ErrUnresolvedPlaceholder = serrors.NewError("HIERARCHY_UNRESOLVED_PLACEHOLDER", "placeholder id could not be resolved", "Hierarchy.Errors.UnresolvedPlaceholder")
	ErrInvalidGraph          = serrors.NewError("HIERARCHY_INVALID_GRAPH", "invalid hierarchy graph", "Hierarchy.Errors.InvalidGraph")
	ErrForbidden             = serrors.NewError("HIERARCHY_FORBIDDEN", "forbidden", "Hierarchy.Errors.Forbidden")
)

type Operation string

const (
	OpValidate     Operation = "validate"
	OpFetch        Operation = "list_designations"
	OpCreate       Operation = "create_designation"
	OpUpdateLevel  Operation = "update_level"
	OpUpdateParent Operation = "update_parent"
	OpResolve      Operation = "resolve_placeholder"
)

func (op Operation) kind() error {
	switch op {
	case OpValidate:
		return ErrInvalidGraph
	case OpFetch:
		return ErrFetchSnapshot
	case OpCreate:
		return ErrCreateDesignation
	case OpUpdateLevel, OpUpdateParent:
		return ErrUpdateDesignation
	case OpResolve:
		return ErrUnresolvedPlaceholder
	default:
		return nil
	}
}

// ReconciliationError reports the store call that aborted a reconciliation.
// Writes counted in Applied stay applied unless the store was transactional.
type ReconciliationError struct {
	Op            Operation
	NodeID        string
	DesignationID string
	Timeout       bool
	Applied       int
	Cause         error
}

func (e *ReconciliationError) Error() string {
	var b strings.Builder
	if kind := e.Op.kind(); kind != nil {
		b.WriteString(kind.Error())
	} else {
		b.WriteString(string(e.Op))
	}
	if e.Timeout {
		b.WriteString(" (timeout)")
	}
	if e.NodeID != "" {
		fmt.Fprintf(&b, " node=%s", e.NodeID)
	}
	if e.DesignationID != "" {
		fmt.Fprintf(&b, " designation=%s", e.DesignationID)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ReconciliationError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if kind := e.Op.kind(); kind != nil {
		errs = append(errs, kind)
	}
	if e.Timeout {
		errs = append(errs, ErrReconciliationTimeout)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
