package missionlink

import "net"

// sendChunk transmits one stop-and-wait chunk at the transfer's
// current sequence and blocks until it is acknowledged. A chunk is
// never transmitted until the previous one is acknowledged.
func (c *Conn) sendChunk(op Operation, chunk []byte) error {
	sendData := func() error {
		return c.send(FlagData, op, chunk)
	}
	if err := sendData(); err != nil {
		return err
	}

	wantAck := c.Seq
	_, err := c.awaitFrame(sendData, func(f Frame, peer net.Addr) (bool, error) {
		if !addrEqual(peer, c.Peer) {
			return false, nil // PeerMismatch
		}
		if f.Flag != FlagAck {
			return false, nil // UnexpectedFlag: stray, ignore
		}
		if f.Ack != wantAck {
			return false, nil // not our chunk's ack, keep waiting
		}
		if f.MissionID != padMissionID(c.MissionID) {
			return false, nil // IdentityMismatch
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	c.Seq++
	return nil
}

// SendInline transmits body as one or more stop-and-wait data chunks,
// splitting at MaxBodySize(c.BufferSize()) boundaries.
// Caller must have called SetMissionID first.
func (c *Conn) SendInline(op Operation, body []byte) error {
	max := MaxBodySize(c.BufferSize())
	if len(body) == 0 {
		return c.sendChunk(op, nil)
	}
	for start := 0; start < len(body); start += max {
		end := start + max
		if end > len(body) {
			end = len(body)
		}
		if err := c.sendChunk(op, body[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// SendFile transmits a file artifact: the filename first (it must end
// in ".json" so the receiver recognizes it as a file announcement),
// then the file's bytes as inline multi-chunk.
func (c *Conn) SendFile(op Operation, filename string, content []byte) error {
	if err := c.sendChunk(op, []byte(filename)); err != nil {
		return err
	}
	return c.SendInline(op, content)
}
