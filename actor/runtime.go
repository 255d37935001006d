package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/luxfi/log"
)

// retryInterval is the fixed real-world delay before a fired timer is
// redelivered to OnTimeout. The checker's discrete exploration treats any
// set timer as eligible to fire on any interleaving; the real runtime
// needs one concrete choice, so it picks a single fixed delay rather than
// modeling jitter or backoff.
const retryInterval = 500 * time.Millisecond

// maxDatagramSize bounds a single UDP read. Per §6, an oversize datagram is
// dropped rather than accepted partially; a buffer this size comfortably
// holds any JSON envelope this package's examples ever produce.
const maxDatagramSize = 65507

// RunUDP drives one actor's real-time execution over UDP: OnStart's
// effects fire immediately, then the actor blocks handling incoming
// datagrams (each JSON-decoded to Envelope[M] and delivered via
// OnMessage) and fired timers (via OnTimeout) until ctx is done. addrs
// gives every ActorID's "host:port"; addrs[id] is this actor's own listen
// address. One process per actor, or one goroutine per actor all sharing
// a process, both just call RunUDP once per actor.
func RunUDP[S any, M any](ctx context.Context, id ActorID, addrs []string, behavior Actor[S, M], logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	if int(id) < 0 || int(id) >= len(addrs) {
		return fmt.Errorf("actor: no listen address configured for actor %d", id)
	}

	laddr, err := net.ResolveUDPAddr("udp", addrs[id])
	if err != nil {
		return fmt.Errorf("actor: resolving %s: %w", addrs[id], err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("actor: listening on %s: %w", addrs[id], err)
	}
	defer conn.Close()

	r := &runner[S, M]{
		id:     id,
		addrs:  addrs,
		conn:   conn,
		timers: map[string]*time.Timer{},
		fired:  make(chan string, 16),
		logger: logger,
	}

	state, effects := behavior.OnStart(id)
	r.state = state
	r.apply(effects)

	incoming := make(chan Envelope[M], 16)
	go r.readLoop(ctx, incoming)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-incoming:
			r.apply(behavior.OnMessage(r.state, env.Src, env.Msg))
		case name := <-r.fired:
			r.apply(behavior.OnTimeout(r.state, name))
		}
	}
}

// runner holds one actor's live connection and pending real-world timers.
type runner[S any, M any] struct {
	id     ActorID
	addrs  []string
	conn   *net.UDPConn
	state  S
	timers map[string]*time.Timer
	fired  chan string
	logger log.Logger
}

func (r *runner[S, M]) readLoop(ctx context.Context, out chan<- Envelope[M]) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("actor: udp read failed", "actor", r.id, "error", err)
			continue
		}

		var env Envelope[M]
		if err := json.Unmarshal(buf[:n], &env); err != nil {
			r.logger.Warn("actor: dropping malformed datagram", "actor", r.id, "error", err)
			continue
		}

		select {
		case out <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (r *runner[S, M]) apply(effects []Effect[S, M]) {
	for _, eff := range effects {
		switch eff.Kind {
		case Send:
			r.send(eff.Dst, eff.Msg)
		case SetTimer:
			r.setTimer(eff.Timer)
		case CancelTimer:
			if t, ok := r.timers[eff.Timer]; ok {
				t.Stop()
				delete(r.timers, eff.Timer)
			}
		case UpdateState:
			r.state = eff.State
		}
	}
}

func (r *runner[S, M]) send(dst ActorID, msg M) {
	if int(dst) < 0 || int(dst) >= len(r.addrs) {
		r.logger.Error("actor: no address for destination", "actor", r.id, "dst", dst)
		return
	}
	raddr, err := net.ResolveUDPAddr("udp", r.addrs[dst])
	if err != nil {
		r.logger.Error("actor: resolving destination", "actor", r.id, "dst", dst, "error", err)
		return
	}

	b, err := json.Marshal(Envelope[M]{Src: r.id, Dst: dst, Msg: msg})
	if err != nil {
		r.logger.Error("actor: marshaling envelope", "actor", r.id, "error", err)
		return
	}
	if len(b) > maxDatagramSize {
		r.logger.Error("actor: outgoing envelope too large, dropping", "actor", r.id, "size", len(b))
		return
	}
	if _, err := r.conn.WriteToUDP(b, raddr); err != nil {
		r.logger.Warn("actor: udp write failed", "actor", r.id, "dst", dst, "error", err)
	}
}

func (r *runner[S, M]) setTimer(name string) {
	if t, ok := r.timers[name]; ok {
		t.Stop()
	}
	r.timers[name] = time.AfterFunc(retryInterval, func() {
		r.fired <- name
	})
}
