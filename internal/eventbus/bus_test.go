package eventbus_test

import (
	"testing"
	"time"

	"github.com/oddsfeed/go-uofsdk/internal/eventbus"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := eventbus.New[int]()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	for i := 0; i < 100; i++ {
		b.Publish(i)
	}
	for i := 0; i < 100; i++ {
		require.Equal(t, i, recv(t, ch1))
		require.Equal(t, i, recv(t, ch2))
	}

	cancel1()
	cancel1()
	_, open := <-ch1
	require.False(t, open)

	b.Publish(7)
	require.Equal(t, 7, recv(t, ch2))
}

func TestClose(t *testing.T) {
	b := eventbus.New[string]()
	ch, cancel := b.Subscribe()
	b.Publish("last")
	b.Close()
	b.Close()
	cancel()

	require.Equal(t, "last", recv(t, ch))
	_, open := <-ch
	require.False(t, open)

	// No-ops after close.
	b.Publish("dropped")
	late, _ := b.Subscribe()
	_, open = <-late
	require.False(t, open)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}
