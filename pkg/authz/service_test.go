package authz

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc, err := NewService(Config{Logger: logger})
	require.NoError(t, err)
	return svc
}

func TestServiceAuthorize(t *testing.T) {
	svc := newTestService(t)
	cases := []struct {
		name    string
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"reader reads", RoleReader, "designations", "read", true},
		{"reader writes", RoleReader, "designations", "write", false},
		{"reader reconciles", RoleReader, "hierarchy", "reconcile", false},
		{"writer inherits read", RoleWriter, "designations", "read", true},
		{"writer writes", RoleWriter, "designations", "write", true},
		{"writer reconciles", RoleWriter, "hierarchy", "reconcile", true},
		{"unknown role", "auditor", "designations", "read", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(context.Background(), NewRequest(SubjectForRole(tc.role), tc.object, tc.action))
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestServiceCustomPolicy(t *testing.T) {
	svc, err := NewService(Config{Policy: "p, role:auditor, designations, *"})
	require.NoError(t, err)

	ok, err := svc.Check(context.Background(), NewRequest(SubjectForRole("Auditor"), "designations", "write"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Check(context.Background(), NewRequest(SubjectForRole("auditor"), "hierarchy", "reconcile"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	require.Same(t, Default(), Default())
}
