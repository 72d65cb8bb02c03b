package missionlink

import (
	"net"
	"time"
)

// initialSeq is the sequence number both sides start a fresh transfer
// at.
const initialSeq = 100

// OpenClient runs the client side of the three-way open against
// mothership, using agentID as the mission-id field (it doubles as
// the logical agent identity during the handshake).
// On success it returns an open Conn with ack=100 and seq=101 (see the
// post-open increment below). The endpoint's
// own socket is read directly, which is only safe when nothing else is
// reading it concurrently — a rover dialing out uses this; a
// mother-ship that also runs a Listener on the same endpoint must use
// OpenClientVia so its reads stay demultiplexed.
func OpenClient(ep *Endpoint, mothership net.Addr, agentID string, retryLimit int) (*Conn, error) {
	return OpenClientVia(ep, endpointSource{ep}, ep.receiveTimeout, mothership, agentID, retryLimit)
}

// OpenClientVia runs the client side of the three-way open like
// OpenClient, but reads frames from src instead of the endpoint
// directly — for outbound transfers dialed from a process that also
// serves a Listener on the same shared socket.
func OpenClientVia(ep *Endpoint, src frameSource, timeout time.Duration, mothership net.Addr, agentID string, retryLimit int) (*Conn, error) {
	c := &Conn{
		ep:         ep,
		src:        src,
		Peer:       mothership,
		AgentID:    agentID,
		MissionID:  agentID,
		Seq:        initialSeq,
		retryLimit: retryLimit,
		timeout:    timeout,
	}

	sendOpenReq := func() error {
		return c.send(FlagOpenReq, OpNone, handshakePlaceholder)
	}
	if err := sendOpenReq(); err != nil {
		return nil, err
	}

	wantMissionID := padMissionID(agentID)
	_, err := c.awaitFrame(sendOpenReq, func(f Frame, peer net.Addr) (bool, error) {
		if !addrEqual(peer, mothership) {
			return false, nil // PeerMismatch: discard silently
		}
		if f.Flag != FlagOpenAck {
			return false, nil // UnexpectedFlag: discard, awaiting timeout to resend
		}
		if f.MissionID != wantMissionID {
			return false, nil // IdentityMismatch: discard
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	c.Ack = c.Seq
	if err := c.send(FlagAck, OpNone, handshakePlaceholder); err != nil {
		return nil, err
	}
	// The open handshake itself counts as an acknowledged round trip;
	// the first data frame of the transfer carries seq+1.
	c.Seq++
	return c, nil
}

// AcceptOpen runs the server side of the three-way open. firstFrame
// must be a previously-received Flag==FlagOpenReq frame from peer; src
// is where subsequent frames for this peer will arrive (a demuxed
// channel when sharing a socket across concurrent transfers).
func AcceptOpen(ep *Endpoint, src frameSource, firstFrame Frame, peer net.Addr, retryLimit int, timeout time.Duration) (*Conn, error) {
	agentID := trimMissionID(firstFrame.MissionID)
	c := &Conn{
		ep:         ep,
		src:        src,
		Peer:       peer,
		AgentID:    agentID,
		MissionID:  agentID,
		Seq:        firstFrame.Seq,
		retryLimit: retryLimit,
		timeout:    timeout,
	}

	sendOpenAck := func() error {
		return c.send(FlagOpenAck, OpNone, handshakePlaceholder)
	}
	if err := sendOpenAck(); err != nil {
		return nil, err
	}

	_, err := c.awaitFrame(sendOpenAck, func(f Frame, p net.Addr) (bool, error) {
		if !addrEqual(p, peer) {
			return false, nil // PeerMismatch
		}
		if f.Flag != FlagAck {
			// A retransmitted open-req, or any other unexpected flag:
			// re-emit the cached Z immediately.
			if serr := sendOpenAck(); serr != nil {
				return false, serr
			}
			return false, nil
		}
		if f.Ack != firstFrame.Seq {
			return false, nil // SequenceMismatch: discard, re-emit on next timeout
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	c.Ack = c.Seq
	c.Seq++
	return c, nil
}
