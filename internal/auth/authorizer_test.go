package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listsync/listsync/server/internal/model"
)

func TestStaticAuthorizer(t *testing.T) {
	a := NewStaticAuthorizer([]string{
		"first-authorized-key-0001",
		"second-authorized-key-002",
	})
	ctx := context.Background()

	require.NoError(t, a.Authorize(ctx, "first-authorized-key-0001"))
	require.NoError(t, a.Authorize(ctx, "second-authorized-key-002"))
	require.ErrorIs(t, a.Authorize(ctx, "not-an-authorized-key-003"), model.ErrValidation)
}

func TestStaticAuthorizerShortKey(t *testing.T) {
	a := NewStaticAuthorizer([]string{"first-authorized-key-0001"})

	// Rejected for length before any comparison, even if listed.
	require.ErrorIs(t, a.Authorize(context.Background(), "short"), model.ErrKeyTooShort)
}
