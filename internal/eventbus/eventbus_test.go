package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{}

func TestEmitRoutesByType(t *testing.T) {
	b := New()
	var got []int
	On(b, func(ctx context.Context, p ping) { got = append(got, p.n) })
	On(b, func(ctx context.Context, p pong) { t.Fatal("pong handler called for ping") })

	Emit(context.Background(), b, ping{1})
	Emit(context.Background(), b, ping{2})
	require.Equal(t, []int{1, 2}, got)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var a, c int
	h := func(ctx context.Context, p ping) { a++ }
	offA := On(b, h)
	On(b, Handler[ping](h))
	On(b, func(ctx context.Context, p ping) { c++ })

	offA()
	offA()
	Emit(context.Background(), b, ping{})
	require.Equal(t, 1, a)
	require.Equal(t, 1, c)
}

func TestGlobalBus(t *testing.T) {
	Use(nil)
	called := false
	off := Subscribe(func(ctx context.Context, p ping) { called = true })
	off()
	Publish(context.Background(), ping{})
	require.False(t, called)

	b := New()
	Use(b)
	t.Cleanup(func() { Use(nil) })
	Subscribe(func(ctx context.Context, p ping) { called = true })
	Publish(context.Background(), ping{})
	require.True(t, called)
}
