package reqid

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background(), "")
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}

func TestIncomingIDIsKept(t *testing.T) {
	_, id := NewContext(context.Background(), "client-42")
	require.Equal(t, "client-42", id)

	_, id = NewContext(context.Background(), strings.Repeat("x", 200))
	require.NotEqual(t, strings.Repeat("x", 200), id)
}
