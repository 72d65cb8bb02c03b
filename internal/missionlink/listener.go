package missionlink

import (
	"context"
	"errors"
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// defaultNewTransferRate and defaultNewTransferBurst bound how fast a
// Listener spawns goroutines for fresh open-reqs from previously-unseen
// peers, so a flapping or hostile peer that never completes its open
// cannot spin the accept loop hot.
const (
	defaultNewTransferRate  = 200
	defaultNewTransferBurst = 50
)

// Listener demultiplexes one shared datagram socket across concurrent
// transfers from distinct peers. The socket has exactly one reader —
// Serve's own goroutine; each accepted transfer reads its own frames
// off a dedicated channel instead of touching the socket directly.
//
// Two peers' transfers can run concurrently; MissionLink never
// multiplexes two transfers over the same peer pair, so a second
// FlagOpenReq from a peer already mid-transfer is treated as a
// retransmission and routed to that transfer's FSM like any other
// stray frame.
type Listener struct {
	ep         *Endpoint
	retryLimit int
	accept     *rate.Limiter

	mu    sync.Mutex
	peers map[string]chan frameEnvelope
}

// NewListener wraps ep for server-side demultiplexed accept.
func NewListener(ep *Endpoint, retryLimit int) *Listener {
	return &Listener{
		ep:         ep,
		retryLimit: retryLimit,
		accept:     rate.NewLimiter(defaultNewTransferRate, defaultNewTransferBurst),
		peers:      make(map[string]chan frameEnvelope),
	}
}

// Handle is invoked once per accepted transfer, in its own goroutine,
// after the three-way open has completed. It receives the Listener
// itself so a handler can dial a further server-initiated transfer
// back to the same peer.
type Handle func(*Conn, *Listener)

// RetryLimit returns the retry budget new transfers are opened with.
func (l *Listener) RetryLimit() int { return l.retryLimit }

// Serve runs the demux loop until ctx is cancelled or the endpoint is
// closed. Malformed datagrams and frames from peers with no open
// transfer that aren't a fresh open-req are silently discarded.
func (l *Listener) Serve(ctx context.Context, handle Handle) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f, peer, err := l.ep.ReceiveFrame()
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// MalformedFrame or similar: discard and keep serving.
			continue
		}

		key := peer.String()
		l.mu.Lock()
		ch, ok := l.peers[key]
		l.mu.Unlock()
		if ok {
			select {
			case ch <- frameEnvelope{frame: f, peer: peer}:
			default:
				// Busy transfer goroutine; drop, sender will time out
				// and retransmit.
			}
			continue
		}

		if f.Flag != FlagOpenReq {
			continue // stray frame for an unknown peer: discard silently
		}
		if !l.accept.Allow() {
			continue // accept pace exceeded: drop, a genuine peer will retransmit
		}

		ch = make(chan frameEnvelope, 8)
		l.mu.Lock()
		l.peers[key] = ch
		l.mu.Unlock()

		go func(first Frame, peerAddr net.Addr, peerCh chan frameEnvelope) {
			defer func() {
				l.mu.Lock()
				delete(l.peers, key)
				l.mu.Unlock()
			}()
			conn, err := AcceptOpen(l.ep, chanSource{peerCh}, first, peerAddr, l.retryLimit, l.ep.receiveTimeout)
			if err != nil {
				return
			}
			handle(conn, l)
		}(f, peer, ch)
	}
}

// Dial opens a mother-ship-initiated outbound transfer to dst over the
// Listener's shared socket. The Listener's demux routes frames from
// dst to this transfer instead of treating them as a fresh open-req,
// so the caller must call Release once the transfer (successfully or
// not) is done.
func (l *Listener) Dial(dst net.Addr, agentID string, retryLimit int) (*Conn, error) {
	key := dst.String()
	ch := make(chan frameEnvelope, 8)

	l.mu.Lock()
	l.peers[key] = ch
	l.mu.Unlock()

	conn, err := OpenClientVia(l.ep, chanSource{ch}, l.ep.receiveTimeout, dst, agentID, retryLimit)
	if err != nil {
		l.Release(dst)
		return nil, err
	}
	return conn, nil
}

// Release removes peer's demux entry, returning subsequent frames from
// it to the fresh-open-req path. Callers of Dial must call Release
// after the dialed transfer ends.
func (l *Listener) Release(peer net.Addr) {
	l.mu.Lock()
	delete(l.peers, peer.String())
	l.mu.Unlock()
}
