package feed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTouchesTeam(t *testing.T) {
	assert.True(t, TeamEvent(OpUpdate, "t1").TouchesTeam("t1"))
	assert.False(t, TeamEvent(OpUpdate, "t1").TouchesTeam("t2"))

	ev := PlayerEvent(OpUpdate, "p1", []string{"t1"}, []string{"t1", "t2"})
	assert.Equal(t, []string{"t1", "t2"}, ev.TeamIDs)
	assert.True(t, ev.TouchesTeam("t2"))
	assert.False(t, ev.TouchesTeam("t3"))
}

func TestTouchesAdmin(t *testing.T) {
	ev := TeamEvent(OpUpdate, "t1", []string{"u1"}, []string{"u2"})
	assert.True(t, ev.TouchesAdmin("u1"))
	assert.True(t, ev.TouchesAdmin("u2"))
	assert.False(t, ev.TouchesAdmin("u3"))
	assert.False(t, PlayerEvent(OpUpdate, "p1", []string{"u1"}).TouchesAdmin("u1"))
}

func TestLocalBusDeliversToAllListeners(t *testing.T) {
	bus := NewLocalBus()
	var mu sync.Mutex
	var got []string

	un1 := bus.Listen(func(ev Event) { mu.Lock(); got = append(got, "a:"+ev.DocumentID); mu.Unlock() })
	un2 := bus.Listen(func(ev Event) { mu.Lock(); got = append(got, "b:"+ev.DocumentID); mu.Unlock() })
	require.Equal(t, 2, bus.Listeners())

	require.NoError(t, bus.Publish(context.Background(), TeamEvent(OpCreate, "t1")))
	assert.ElementsMatch(t, []string{"a:t1", "b:t1"}, got)

	un1()
	un1()
	assert.Equal(t, 1, bus.Listeners())

	got = nil
	require.NoError(t, bus.Publish(context.Background(), TeamEvent(OpCreate, "t2")))
	assert.Equal(t, []string{"b:t2"}, got)
	un2()
	assert.Equal(t, 0, bus.Listeners())
}
