package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/iota-uz/orghierarchy/pkg/authz"
)

// Permission is "<object>.<action>" in the authz policy.
type Permission string

const (
	PermissionRead      Permission = "designations.read"
	PermissionWrite     Permission = "designations.write"
	PermissionReconcile Permission = "hierarchy.reconcile"
)

func (p Permission) request(subject string) authz.Request {
	object, action, _ := strings.Cut(string(p), ".")
	return authz.NewRequest(subject, object, action)
}

// Authorizer is the capability handed to services in place of ambient auth state.
type Authorizer interface {
	Authorize(ctx context.Context, perm Permission) error
}

// RoleAuthorizer checks every permission for a fixed role against the casbin policy.
type RoleAuthorizer struct {
	svc     *authz.Service
	subject string
}

func NewRoleAuthorizer(svc *authz.Service, role string) *RoleAuthorizer {
	return &RoleAuthorizer{svc: svc, subject: authz.SubjectForRole(role)}
}

func (a *RoleAuthorizer) Authorize(ctx context.Context, perm Permission) error {
	if err := a.svc.Authorize(ctx, perm.request(a.subject)); err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return nil
}

// AllowAll binds the writer role.
func AllowAll() Authorizer {
	return NewRoleAuthorizer(authz.Default(), authz.RoleWriter)
}

// ReadOnly binds the reader role. Dry runs and exports use it.
func ReadOnly() Authorizer {
	return NewRoleAuthorizer(authz.Default(), authz.RoleReader)
}
