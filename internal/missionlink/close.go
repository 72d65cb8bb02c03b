package missionlink

import "net"

// CloseInitiator runs the four-way close from the side that decides to
// end the transfer first (typically the sender, once its last chunk is
// acknowledged). It sends F, then accepts either a peer F (records the
// peer's seq as our ack and answers A), an A acknowledging our F
// (keeps waiting for the peer's F), or a timeout (retransmits F). It
// returns once both directions have exchanged a matched F/A, along
// with whatever response body the peer's close frame carried.
func (c *Conn) CloseInitiator() ([]byte, error) {
	sendClose := func() error {
		return c.send(FlagClose, OpNone, []byte{0})
	}
	if err := sendClose(); err != nil {
		return nil, err
	}

	var response []byte
	peerClosed := false
	ourCloseAcked := false
	for !peerClosed || !ourCloseAcked {
		_, err := c.awaitFrame(sendClose, func(f Frame, peer net.Addr) (bool, error) {
			if !addrEqual(peer, c.Peer) {
				return false, nil
			}
			switch f.Flag {
			case FlagClose:
				c.Ack = f.Seq
				response = f.Body
				if err := c.send(FlagAck, OpNone, nil); err != nil {
					return false, err
				}
				peerClosed = true
				return true, nil
			case FlagAck:
				if f.Ack != c.Seq {
					return false, nil
				}
				ourCloseAcked = true
				return true, nil
			default:
				return false, nil
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return response, nil
}

// CloseResponder runs the four-way close from the side that observes
// the peer's F first (typically the receiver, once it flushes its
// delayed-write buffer). It acknowledges the peer's F with an A, then
// answers F — carrying responseBody when the dispatcher has a
// synchronous reply (e.g. "Registered", a mission id, "no_mission",
// "progress_received") — then waits for the peer's ack, retransmitting
// its own F on timeout and re-emitting its A if the peer's F arrives
// again.
func (c *Conn) CloseResponder(peerFrame Frame, responseBody []byte) error {
	c.Ack = peerFrame.Seq
	if responseBody == nil {
		responseBody = []byte{0}
	}
	sendClose := func() error {
		return c.send(FlagClose, OpNone, responseBody)
	}
	if err := c.sendAck(); err != nil {
		return err
	}
	if err := sendClose(); err != nil {
		return err
	}

	_, err := c.awaitFrame(sendClose, func(f Frame, peer net.Addr) (bool, error) {
		if !addrEqual(peer, c.Peer) {
			return false, nil
		}
		if f.Flag == FlagClose {
			// Retransmitted peer F: our A was lost, re-emit it.
			if serr := c.sendAck(); serr != nil {
				return false, serr
			}
			return false, nil
		}
		if f.Flag != FlagAck {
			return false, nil
		}
		if f.Ack != c.Seq {
			return false, nil
		}
		return true, nil
	})
	return err
}
