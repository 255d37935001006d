package actor_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/actor"
)

// sendOnceActor sends one fixed message to dst as soon as it starts and
// never reacts to anything afterward.
type sendOnceActor struct {
	dst actor.ActorID
	msg string
}

func (a sendOnceActor) OnStart(actor.ActorID) (struct{}, []actor.Effect[struct{}, string]) {
	return struct{}{}, []actor.Effect[struct{}, string]{actor.SendTo[struct{}, string](a.dst, a.msg)}
}

func (sendOnceActor) OnMessage(struct{}, actor.ActorID, string) []actor.Effect[struct{}, string] {
	return nil
}

func (sendOnceActor) OnTimeout(struct{}, string) []actor.Effect[struct{}, string] { return nil }

// recordingActor forwards every delivered message onto a channel the test
// can observe; it never replies.
type recordingActor struct {
	got chan string
}

func (recordingActor) OnStart(actor.ActorID) (struct{}, []actor.Effect[struct{}, string]) {
	return struct{}{}, nil
}

func (a recordingActor) OnMessage(_ struct{}, _ actor.ActorID, msg string) []actor.Effect[struct{}, string] {
	a.got <- msg
	return nil
}

func (recordingActor) OnTimeout(struct{}, string) []actor.Effect[struct{}, string] { return nil }

// freeUDPAddr reserves an ephemeral loopback port by briefly binding it,
// then releasing it for RunUDP to bind for real.
func freeUDPAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())
	return addr
}

func TestRunUDPDeliversASentMessageBetweenTwoActors(t *testing.T) {
	addrs := []string{freeUDPAddr(t), freeUDPAddr(t)}
	got := make(chan string, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = actor.RunUDP[struct{}, string](ctx, 0, addrs, sendOnceActor{dst: 1, msg: "ping"}, nil)
	}()
	go func() {
		defer wg.Done()
		_ = actor.RunUDP[struct{}, string](ctx, 1, addrs, recordingActor{got: got}, nil)
	}()

	select {
	case msg := <-got:
		require.Equal(t, "ping", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for udp delivery")
	}

	cancel()
	wg.Wait()
}

func TestRunUDPRejectsOutOfRangeActorID(t *testing.T) {
	err := actor.RunUDP[struct{}, string](context.Background(), 5, []string{"127.0.0.1:0"}, sendOnceActor{}, nil)
	require.Error(t, err)
}
