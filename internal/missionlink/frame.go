// Package missionlink implements MissionLink (ML), the reliable
// request/response protocol rovers and the mother-ship use for
// registration, mission delivery, mission requests, progress reports
// and close handshakes, carried over a connectionless datagram socket.
package missionlink

import (
	"bytes"
	"fmt"
	"strconv"
)

// Flag classifies the protocol role of a frame.
type Flag byte

const (
	FlagOpenReq Flag = 'S' // client → server, three-way open request
	FlagOpenAck Flag = 'Z' // server → client, three-way open ack
	FlagAck     Flag = 'A' // either direction, data/close ack
	FlagClose   Flag = 'F' // either direction, close
	FlagData    Flag = 'D' // either direction, data chunk
)

func (f Flag) String() string { return string(f) }

func (f Flag) valid() bool {
	switch f {
	case FlagOpenReq, FlagOpenAck, FlagAck, FlagClose, FlagData:
		return true
	}
	return false
}

// Operation classifies the semantic purpose of a transfer.
type Operation byte

const (
	OpRegister    Operation = 'R'
	OpTaskDeliver Operation = 'T'
	OpTaskRequest Operation = 'Q'
	OpProgress    Operation = 'P'
	OpNone        Operation = 'N'
	// OpMetrics is a historical tag, parsed but never produced; it is
	// treated as an alias for OpProgress.
	OpMetrics Operation = 'M'
)

func (o Operation) valid() bool {
	switch o {
	case OpRegister, OpTaskDeliver, OpTaskRequest, OpProgress, OpNone, OpMetrics:
		return true
	}
	return false
}

// fieldSep separates the seven ML header/body fields on the wire.
const fieldSep = '|'

// numFields is the fixed field count of every ML frame.
const numFields = 7

// missionIDLen is the fixed width of the mission-id / agent-id field.
const missionIDLen = 3

// headerOverhead is the fixed number of bytes every frame spends on
// framing: 1 (flag) + 3 (mission-id) + 4 (seq) + 4 (ack) + 4 (size) +
// 1 (op) + 6 (separators) = 23
const headerOverhead = 23

// Frame is the decoded, structured form of one MissionLink datagram.
// Parsing happens once at the boundary (Decode); the rest of the
// engine only ever sees this type.
type Frame struct {
	Flag      Flag
	MissionID string // agent-id during open handshakes, mission-id otherwise
	Seq       uint32
	Ack       uint32
	Op        Operation
	Body      []byte
}

// MalformedFrame is returned when a datagram does not decode into a
// well-formed seven-field ML frame.
type MalformedFrame struct {
	Reason string
}

func (e *MalformedFrame) Error() string { return "missionlink: malformed frame: " + e.Reason }

// padMissionID pads or truncates id to exactly missionIDLen characters.
func padMissionID(id string) string {
	if len(id) >= missionIDLen {
		return id[:missionIDLen]
	}
	return id + "   "[:missionIDLen-len(id)]
}

// Encode renders f as a pipe-delimited ML datagram. bufferSize bounds
// the total frame length (header + body); callers are responsible for
// chunking bodies that exceed bufferSize-headerOverhead before calling
// Encode (see send.go).
func Encode(f Frame, bufferSize int) ([]byte, error) {
	if !f.Flag.valid() {
		return nil, fmt.Errorf("missionlink: encode: invalid flag %q", byte(f.Flag))
	}
	op := f.Op
	if op == 0 {
		op = OpNone
	}
	if !op.valid() {
		return nil, fmt.Errorf("missionlink: encode: invalid operation %q", byte(op))
	}
	mid := padMissionID(f.MissionID)
	if bytes.ContainsRune([]byte(mid), fieldSep) || bytes.ContainsRune(f.Body, fieldSep) {
		return nil, fmt.Errorf("missionlink: encode: field contains separator byte")
	}

	maxBody := bufferSize - headerOverhead
	if maxBody < 0 {
		maxBody = 0
	}
	if len(f.Body) > maxBody {
		return nil, fmt.Errorf("missionlink: encode: body of %d bytes exceeds max %d for buffer size %d", len(f.Body), maxBody, bufferSize)
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(f.Flag))
	buf.WriteByte(fieldSep)
	buf.WriteString(mid)
	buf.WriteByte(fieldSep)
	buf.WriteString(fmt.Sprintf("%04d", f.Seq%10000))
	buf.WriteByte(fieldSep)
	buf.WriteString(fmt.Sprintf("%04d", f.Ack%10000))
	buf.WriteByte(fieldSep)
	buf.WriteString(fmt.Sprintf("%04d", len(f.Body)%10000))
	buf.WriteByte(fieldSep)
	buf.WriteByte(byte(op))
	buf.WriteByte(fieldSep)
	buf.Write(f.Body)
	return buf.Bytes(), nil
}

// Decode parses a raw datagram into a Frame. Field-count validation
// happens before any other work, and decoding never allocates until
// that check passes.
func Decode(raw []byte) (Frame, error) {
	if n := bytes.Count(raw, []byte{fieldSep}) + 1; n != numFields {
		return Frame{}, &MalformedFrame{Reason: fmt.Sprintf("expected %d fields, got %d", numFields, n)}
	}
	parts := bytes.Split(raw, []byte{fieldSep})

	flagField, midField, seqField, ackField, sizeField, opField, body := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6]

	if len(flagField) != 1 {
		return Frame{}, &MalformedFrame{Reason: "flag field must be one byte"}
	}
	flag := Flag(flagField[0])
	if !flag.valid() {
		return Frame{}, &MalformedFrame{Reason: fmt.Sprintf("unknown flag %q", flagField[0])}
	}

	if len(opField) != 1 {
		return Frame{}, &MalformedFrame{Reason: "operation field must be one byte"}
	}
	op := Operation(opField[0])
	if !op.valid() {
		return Frame{}, &MalformedFrame{Reason: fmt.Sprintf("unknown operation %q", opField[0])}
	}

	seq, err := parseDecimal(seqField)
	if err != nil {
		return Frame{}, &MalformedFrame{Reason: "sequence field: " + err.Error()}
	}
	ack, err := parseDecimal(ackField)
	if err != nil {
		return Frame{}, &MalformedFrame{Reason: "ack field: " + err.Error()}
	}
	size, err := parseDecimal(sizeField)
	if err != nil {
		return Frame{}, &MalformedFrame{Reason: "size field: " + err.Error()}
	}
	if int(size) != len(body) {
		return Frame{}, &MalformedFrame{Reason: fmt.Sprintf("declared size %d does not match body length %d", size, len(body))}
	}

	bodyCopy := make([]byte, len(body))
	copy(bodyCopy, body)

	return Frame{
		Flag:      flag,
		MissionID: string(midField),
		Seq:       seq,
		Ack:       ack,
		Op:        op,
		Body:      bodyCopy,
	}, nil
}

func parseDecimal(field []byte) (uint32, error) {
	v, err := strconv.ParseUint(string(field), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not a decimal value: %q", field)
	}
	return uint32(v), nil
}

// MaxBodySize returns the largest inline body a single frame can carry
// for the given buffer size.
func MaxBodySize(bufferSize int) int {
	n := bufferSize - headerOverhead
	if n < 0 {
		return 0
	}
	return n
}
