package missionlink

import (
	"testing"
	"time"
)

func newCloseTestConn(t *testing.T, src frameSource) *Conn {
	t.Helper()
	return &Conn{
		ep:         discardEndpoint(t),
		src:        src,
		Peer:       testPeer(),
		AgentID:    "rv1",
		MissionID:  "m01",
		Seq:        103,
		Ack:        102,
		retryLimit: 1,
		timeout:    5 * time.Millisecond,
	}
}

// TestCloseInitiatorPeerClosesFirst covers the ordering where the
// peer's own F arrives before our F is acked: the initiator must still
// answer it with an A and keep waiting for its own F to be acked.
func TestCloseInitiatorPeerClosesFirst(t *testing.T) {
	peer := testPeer()
	src := &scriptedSource{peer: peer, frames: []Frame{
		{Flag: FlagClose, MissionID: "m01", Seq: 200, Ack: 0, Body: []byte("response-body")},
		{Flag: FlagAck, MissionID: "m01", Seq: 0, Ack: 103},
	}}
	c := newCloseTestConn(t, src)

	resp, err := c.CloseInitiator()
	if err != nil {
		t.Fatalf("CloseInitiator: %v", err)
	}
	if string(resp) != "response-body" {
		t.Fatalf("unexpected response body: %q", resp)
	}
}

// TestCloseInitiatorIgnoresMismatchedAck covers an ack for a different
// sequence (e.g. a stale retransmission) not completing our half of
// the close.
func TestCloseInitiatorIgnoresMismatchedAck(t *testing.T) {
	peer := testPeer()
	src := &scriptedSource{peer: peer, frames: []Frame{
		{Flag: FlagAck, MissionID: "m01", Seq: 0, Ack: 999}, // mismatched, ignored
		{Flag: FlagAck, MissionID: "m01", Seq: 0, Ack: 103}, // matches our close seq
		{Flag: FlagClose, MissionID: "m01", Seq: 200, Ack: 0, Body: []byte("done")},
	}}
	c := newCloseTestConn(t, src)

	resp, err := c.CloseInitiator()
	if err != nil {
		t.Fatalf("CloseInitiator: %v", err)
	}
	if string(resp) != "done" {
		t.Fatalf("unexpected response body: %q", resp)
	}
}

func TestCloseResponderWaitsForAck(t *testing.T) {
	peer := testPeer()
	src := &scriptedSource{peer: peer, frames: []Frame{
		{Flag: FlagAck, MissionID: "m01", Seq: 0, Ack: 103},
	}}
	c := newCloseTestConn(t, src)

	peerFrame := Frame{Flag: FlagClose, MissionID: "m01", Seq: 200}
	if err := c.CloseResponder(peerFrame, []byte("reply")); err != nil {
		t.Fatalf("CloseResponder: %v", err)
	}
}
