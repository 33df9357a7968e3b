package composables

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestTenantID(t *testing.T) {
	_, err := UseTenantID(context.Background())
	require.ErrorIs(t, err, ErrNoTenantID)

	_, err = UseTenantID(WithTenantID(context.Background(), uuid.Nil))
	require.ErrorIs(t, err, ErrNoTenantID)

	id := uuid.New()
	got, err := UseTenantID(WithTenantID(context.Background(), id))
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestUseLogger_FallsBackToStandardLogger(t *testing.T) {
	require.NotNil(t, UseLogger(context.Background()))

	entry := logrus.New().WithField("component", "test")
	require.Same(t, entry, UseLogger(WithLogger(context.Background(), entry)))
}

func TestUseTx_WithoutPool(t *testing.T) {
	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
	require.False(t, HasTx(context.Background()))
}
