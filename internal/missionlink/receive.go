package missionlink

import (
	"bytes"
	"net"
	"strings"
)

// ReceivedMessage is what Conn.Receive hands back once a full message
// (inline body or file artifact) has been drained and the sender has
// begun closing the transfer.
type ReceivedMessage struct {
	Op        Operation
	MissionID string
	IsFile    bool
	Filename  string
	Data      []byte

	// closeFrame is the peer F that ended the data phase; Receive's
	// caller passes it straight to CloseResponder to finish the
	// four-way close.
	closeFrame Frame
}

// CloseFrame returns the peer-originated close frame observed at the
// end of the data phase, for completing the close handshake.
func (m *ReceivedMessage) CloseFrame() Frame { return m.closeFrame }

// sendAck re-emits the receiver's current ack state; used both as the
// "re-emit last A" error action and as the timeout-retransmit target.
func (c *Conn) sendAck() error {
	return c.send(FlagAck, OpNone, nil)
}

// Receive drains one MissionLink transfer's data phase: the first data
// frame (which reveals operation, mission-id, and whether the body is
// a filename announcement), then further chunks via a one-slot
// delayed-write buffer (each accepted chunk is written only once the
// next one is accepted or the close arrives), until the sender's
// close frame arrives.
func (c *Conn) Receive() (*ReceivedMessage, error) {
	first, err := c.awaitFrame(c.sendAck, func(f Frame, peer net.Addr) (bool, error) {
		if !addrEqual(peer, c.Peer) {
			return false, nil // PeerMismatch
		}
		if f.Flag == FlagClose {
			return false, ErrProtocolInvariantViolation
		}
		if f.Flag != FlagData {
			return false, nil // UnexpectedFlag
		}
		if f.Seq != c.Ack+1 {
			return false, nil // SequenceMismatch: re-emit last ack on next timeout only
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	c.SetMissionID(trimMissionID(first.MissionID))
	c.Ack = first.Seq
	if err := c.sendAck(); err != nil {
		return nil, err
	}

	isFile := strings.HasSuffix(string(first.Body), ".json")
	var filename string
	var previous []byte
	if isFile {
		filename = string(first.Body)
	} else {
		previous = first.Body
	}

	var sink bytes.Buffer
	for {
		f, err := c.awaitFrame(c.sendAck, func(f Frame, peer net.Addr) (bool, error) {
			if !addrEqual(peer, c.Peer) {
				return false, nil // PeerMismatch
			}
			if f.Flag == FlagClose {
				return true, nil
			}
			if f.Flag != FlagData {
				return false, nil // UnexpectedFlag
			}
			if f.Seq != c.Ack+1 {
				return false, nil // SequenceMismatch
			}
			if trimMissionID(f.MissionID) != c.MissionID {
				return false, nil // IdentityMismatch: discard silently, no re-emit
			}
			return true, nil
		})
		if err != nil {
			return nil, err
		}

		if f.Flag == FlagClose {
			if previous != nil {
				sink.Write(previous)
			}
			return &ReceivedMessage{
				Op:        first.Op,
				MissionID: c.MissionID,
				IsFile:    isFile,
				Filename:  filename,
				Data:      sink.Bytes(),
				closeFrame: f,
			}, nil
		}

		c.Ack = f.Seq
		if err := c.sendAck(); err != nil {
			return nil, err
		}
		if previous != nil {
			sink.Write(previous)
		}
		previous = f.Body
	}
}
