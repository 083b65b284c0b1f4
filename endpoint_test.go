package ipcwire

import "testing"

func TestResolveEndpoint_TCP(t *testing.T) {
	ep, err := ResolveEndpoint("127.0.0.1", "4242")
	if err != nil {
		t.Fatalf("ResolveEndpoint failed: %v", err)
	}
	if ep.Network != "tcp" {
		t.Errorf("Network = %q, want tcp", ep.Network)
	}
	if ep.Address != "127.0.0.1:4242" {
		t.Errorf("Address = %q, want 127.0.0.1:4242", ep.Address)
	}
}

func TestResolveEndpoint_UnixPath(t *testing.T) {
	ep, err := ResolveEndpoint("", "/tmp/ipcwire-test.sock")
	if err != nil {
		t.Fatalf("ResolveEndpoint failed: %v", err)
	}
	if ep.Network != "unix" {
		t.Errorf("Network = %q, want unix", ep.Network)
	}
	if ep.Address != "/tmp/ipcwire-test.sock" {
		t.Errorf("Address = %q, want /tmp/ipcwire-test.sock", ep.Address)
	}
}

func TestResolveEndpoint_InvalidService(t *testing.T) {
	if _, err := ResolveEndpoint("localhost", "not-a-port-or-path"); err == nil {
		t.Error("expected error for service that is neither a path nor a port")
	}
}

func TestResolveEndpoint_Empty(t *testing.T) {
	if _, err := ResolveEndpoint("localhost", ""); err == nil {
		t.Error("expected error for empty service")
	}
}
