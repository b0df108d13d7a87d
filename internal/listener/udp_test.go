package listener

import (
	"net"
	"testing"
)

func TestUDPServer_OneEnvelopePerDatagram(t *testing.T) {
	t.Parallel()

	s := NewUDP("127.0.0.1:0", Config{Name: "log4net"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("udp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("one\ntwo\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := conn.Write([]byte("three")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := receive(t, s.Lines(), 2)
	if got[0].Line != "one\ntwo" {
		t.Fatalf("first datagram = %q, want %q", got[0].Line, "one\ntwo")
	}
	if got[1].Line != "three" {
		t.Fatalf("second datagram = %q, want %q", got[1].Line, "three")
	}
	if got[0].Source != "log4net" {
		t.Fatalf("source = %q, want log4net", got[0].Source)
	}
}

func TestUDPServer_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewUDP("127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	s.Stop()

	if _, ok := <-s.Lines(); ok {
		t.Fatal("expected closed lines channel")
	}
	select {
	case err := <-s.Errors():
		t.Fatalf("unexpected error after Stop: %v", err)
	default:
	}
}
