package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshnode/internal/message"
)

func TestTicker_NothingBeforeArm(t *testing.T) {
	tk := NewTicker(5 * time.Millisecond)

	select {
	case env := <-tk.C():
		t.Fatalf("unexpected tick before arm: %v", env)
	case <-time.After(30 * time.Millisecond):
	}
	assert.False(t, tk.Armed())
}

func TestTicker_ArmOnceEmitsSelfAddressedTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tk := NewTicker(5 * time.Millisecond)
	require.True(t, tk.Arm(ctx, "n1"))
	assert.False(t, tk.Arm(ctx, "n2"), "second arm must be a no-op")

	for i := 0; i < 3; i++ {
		select {
		case env := <-tk.C():
			assert.Equal(t, "n1", env.Src)
			assert.Equal(t, "n1", env.Dest)
			assert.IsType(t, &message.GossipDue{}, env.Body.Payload)
			assert.Nil(t, env.Body.MsgID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}
}

func TestTicker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := NewTicker(5 * time.Millisecond)
	tk.Arm(ctx, "n1")
	<-tk.C()
	cancel()

	// Drain a tick that may already be in flight, then expect silence.
	time.Sleep(20 * time.Millisecond)
	select {
	case <-tk.C():
	default:
	}
	select {
	case <-tk.C():
		t.Fatal("tick after cancel")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMultiplexer_MergesAndClosesOnInboundEOF(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := make(chan message.Envelope)
	ticks := make(chan message.Envelope)
	m := NewMultiplexer(inbound, ticks)
	go m.Run(ctx)

	go func() {
		inbound <- message.Envelope{Src: "c1", Body: message.Body{Payload: &message.Read{}}}
		ticks <- message.Envelope{Src: "n1", Body: message.Body{Payload: &message.GossipDue{}}}
		inbound <- message.Envelope{Src: "c2", Body: message.Body{Payload: &message.Read{}}}
		close(inbound)
	}()

	var types []string
	for env := range m.Events() {
		types = append(types, env.Src+":"+env.Type())
	}
	assert.Equal(t, []string{"c1:read", "n1:gossip_due", "c2:read"}, types)
}

func TestMultiplexer_NilTicks(t *testing.T) {
	inbound := make(chan message.Envelope, 1)
	m := NewMultiplexer(inbound, nil)
	go m.Run(context.Background())

	inbound <- message.Envelope{Src: "c1", Body: message.Body{Payload: &message.Read{}}}
	close(inbound)

	env, ok := <-m.Events()
	require.True(t, ok)
	assert.Equal(t, "c1", env.Src)
	_, ok = <-m.Events()
	assert.False(t, ok)
}
