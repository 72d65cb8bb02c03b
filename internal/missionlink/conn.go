package missionlink

import (
	"errors"
	"net"
	"strings"
	"time"
)

// handshakePlaceholder is the literal body carried by the three-way
// open's frames (open-req, open-ack, and the client's completing ack).
// Close frames carry a NUL byte or a response body, and data acks carry
// an empty body.
var handshakePlaceholder = []byte("-.-")

// Conn is one open MissionLink transfer: a three-way-opened,
// not-yet-closed session between a rover and the mother-ship carrying
// exactly one logical application message. It exclusively owns its
// sequence/ack bookkeeping for its lifetime.
type Conn struct {
	ep         *Endpoint
	src        frameSource
	Peer       net.Addr
	AgentID    string // rover's logical identity, captured at open and immutable thereafter
	MissionID  string // current wire value of the mission-id field: agent-id during open, the transfer's mission token (or "000") once a data frame has been sent/received
	Seq        uint32
	Ack        uint32
	retryLimit int
	timeout    time.Duration
}

// SetMissionID updates the mission-id field future frames on this
// transfer will carry. Senders call it before the first data frame to
// choose the transfer's mission token (or "000" when none applies);
// receivers call it once the first data frame reveals it.
func (c *Conn) SetMissionID(id string) { c.MissionID = id }

// trimMissionID strips the trailing pad spaces senders add when
// encoding a shorter identifier.
func trimMissionID(id string) string {
	return strings.TrimRight(id, " ")
}

// awaitFrame blocks for a matching frame, retransmitting resend() on
// every receive timeout and decrementing the retry budget each time.
// Only timeouts consume the budget; stray or mismatched
// frames are discarded by accept returning (false, nil) without
// affecting retries — accept may itself choose to re-emit a cached
// frame for the "re-emit last ack" error actions, which does not count
// either.
func (c *Conn) awaitFrame(resend func() error, accept func(Frame, net.Addr) (bool, error)) (Frame, error) {
	retries := 0
	for {
		f, peer, err := c.src.recv(c.timeout)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				retries++
				if retries > c.retryLimit {
					return Frame{}, ErrPeerUnreachable
				}
				if rerr := resend(); rerr != nil {
					return Frame{}, rerr
				}
				continue
			}
			// MalformedFrame or a stray receive error: discard.
			continue
		}
		ok, ferr := accept(f, peer)
		if ferr != nil {
			return Frame{}, ferr
		}
		if !ok {
			continue
		}
		return f, nil
	}
}

// send writes a frame to the transfer's established peer.
func (c *Conn) send(flag Flag, op Operation, body []byte) error {
	return c.ep.SendFrame(Frame{
		Flag:      flag,
		MissionID: c.MissionID,
		Seq:       c.Seq,
		Ack:       c.Ack,
		Op:        op,
		Body:      body,
	}, c.Peer)
}

// BufferSize exposes the endpoint's datagram buffer size, used by the
// transfer engine to compute per-chunk sizes.
func (c *Conn) BufferSize() int { return c.ep.BufferSize() }
