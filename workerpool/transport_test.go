package workerpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastTransportDeliversToAllSubscribers(t *testing.T) {
	tr := NewBroadcastTransport()
	a := tr.Subscribe("a", 1)
	b := tr.Subscribe("b", 1)

	require.NoError(t, tr.Send(Message{Topic: "ping"}))

	assert.Equal(t, "ping", (<-a).Topic)
	assert.Equal(t, "ping", (<-b).Topic)

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send(Message{Topic: "after-close"}), errClosed)
}

func TestPointToPointTransportRoundTrips(t *testing.T) {
	tr := NewPointToPointTransport(1)
	require.NoError(t, tr.Send(Message{Topic: "hello"}))
	msg := <-tr.Receive()
	assert.Equal(t, "hello", msg.Topic)

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send(Message{}), errClosed)
}

func TestInProcessTransportDispatchesSynchronously(t *testing.T) {
	tr := NewInProcessTransport()
	var got []string
	tr.Listen(func(m Message) { got = append(got, m.Topic) })
	tr.Listen(func(m Message) { got = append(got, "also:"+m.Topic) })

	require.NoError(t, tr.Send(Message{Topic: "x"}))
	assert.ElementsMatch(t, []string{"x", "also:x"}, got)

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send(Message{Topic: "y"}), errClosed)
}
