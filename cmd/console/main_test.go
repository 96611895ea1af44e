package main

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckPortOverlap(t *testing.T) {
	t.Parallel()

	if err := checkPortOverlap(8080, 9090); err != nil {
		t.Fatalf("distinct ports: %v, want nil", err)
	}

	err := checkPortOverlap(8080, 8080)
	if err == nil {
		t.Fatal("expected error when console and ops ports collide")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Errorf("error = %q, want the collision named", err)
	}
}

func TestNotifySystemd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		socket  string
		wantSub string
	}{
		{"socket env unset", "", "NOTIFY_SOCKET not set"},
		{"socket path missing", filepath.Join(t.TempDir(), "gone.sock"), "dial failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NOTIFY_SOCKET", tt.socket)

			err := notifySystemd()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestNotifySystemd_SendsReady(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sock)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sock)
	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd: %v", err)
	}

	buf := make([]byte, 64)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	if got := string(buf[:n]); got != "READY=1" {
		t.Errorf("datagram = %q, want READY=1", got)
	}
}
