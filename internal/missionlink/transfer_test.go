package missionlink

import (
	"context"
	"testing"
	"time"
)

func newTestEndpoint(t *testing.T) *Endpoint {
	t.Helper()
	ep, err := NewEndpoint("127.0.0.1:0", DefaultBufferSize, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	t.Cleanup(func() { ep.Close() })
	return ep
}

// TestClientServerRoundTrip exercises a full open → send → close cycle
// between a client dialing directly and a Listener-served server, the
// same shape the rover and mother-ship use.
func TestClientServerRoundTrip(t *testing.T) {
	serverEP := newTestEndpoint(t)
	clientEP := newTestEndpoint(t)

	listener := NewListener(serverEP, DefaultRetryLimit)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *ReceivedMessage, 1)
	go listener.Serve(ctx, func(conn *Conn, l *Listener) {
		msg, err := conn.Receive()
		if err != nil {
			t.Errorf("server Receive: %v", err)
			return
		}
		if err := conn.CloseResponder(msg.CloseFrame(), []byte("ack-from-server")); err != nil {
			t.Errorf("server CloseResponder: %v", err)
			return
		}
		received <- msg
	})

	resp, err := SendInlineMessage(clientEP, serverEP.LocalAddr(), "rv1", "m01", OpProgress, []byte(`{"p":50}`), DefaultRetryLimit)
	if err != nil {
		t.Fatalf("SendInlineMessage: %v", err)
	}
	if string(resp) != "ack-from-server" {
		t.Fatalf("unexpected close response: %q", resp)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != `{"p":50}` {
			t.Fatalf("unexpected received body: %q", msg.Data)
		}
		if msg.Op != OpProgress {
			t.Fatalf("unexpected op: %v", msg.Op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive message")
	}
}

// TestListenerDialSymmetric exercises the server-initiated transfer a
// mother-ship uses to answer a pending-mission task-request: the
// "rover" side runs its own Listener so it can both dial out and
// accept the mother-ship-initiated reply on the same socket.
func TestListenerDialSymmetric(t *testing.T) {
	roverEP := newTestEndpoint(t)
	stationEP := newTestEndpoint(t)

	roverListener := NewListener(roverEP, DefaultRetryLimit)
	stationListener := NewListener(stationEP, DefaultRetryLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roverReceived := make(chan string, 1)
	go roverListener.Serve(ctx, func(conn *Conn, l *Listener) {
		msg, err := conn.Receive()
		if err != nil {
			t.Errorf("rover Receive: %v", err)
			return
		}
		if err := conn.CloseResponder(msg.CloseFrame(), []byte("m99")); err != nil {
			t.Errorf("rover CloseResponder: %v", err)
			return
		}
		roverReceived <- string(msg.Data)
	})

	// Station dials the rover through its own Listener, mirroring a
	// dispatcher's deliverMission call. Dial reads the rover's replies
	// off the station Listener's demux, so its Serve loop must run; its
	// handler is never invoked here.
	go stationListener.Serve(ctx, func(*Conn, *Listener) {})

	conn, err := stationListener.Dial(roverEP.LocalAddr(), "ms0", DefaultRetryLimit)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer stationListener.Release(roverEP.LocalAddr())

	conn.SetMissionID("m99")
	if err := conn.SendInline(OpTaskDeliver, []byte(`{"id":"m99"}`)); err != nil {
		t.Fatalf("SendInline: %v", err)
	}
	resp, err := conn.CloseInitiator()
	if err != nil {
		t.Fatalf("CloseInitiator: %v", err)
	}
	if string(resp) != "m99" {
		t.Fatalf("unexpected close response: %q", resp)
	}

	select {
	case data := <-roverReceived:
		if data != `{"id":"m99"}` {
			t.Fatalf("unexpected rover-received body: %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rover to receive task delivery")
	}
}

func TestOpenClientPeerUnreachable(t *testing.T) {
	clientEP := newTestEndpoint(t)
	deadEP, err := NewEndpoint("127.0.0.1:0", DefaultBufferSize, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	deadAddr := deadEP.LocalAddr()
	deadEP.Close() // nothing listening on this address now

	_, err = OpenClient(clientEP, deadAddr, "rv1", 2)
	if err != ErrPeerUnreachable {
		t.Fatalf("expected ErrPeerUnreachable, got %v", err)
	}
}
