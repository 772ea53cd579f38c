package endpoint

import (
	"errors"
	"testing"
)

func TestParseConnectionStringUDP(t *testing.T) {
	cases := []struct {
		in     string
		scheme Scheme
		host   string
		port   int
	}{
		{"udpin:0.0.0.0:14550", SchemeUDPIn, "0.0.0.0", 14550},
		{"udpout:192.168.1.20:14550", SchemeUDPOut, "192.168.1.20", 14550},
		{"tcpout:192.168.1.20:5760", SchemeTCPOut, "192.168.1.20", 5760},
	}
	for _, c := range cases {
		cfg, err := ParseConnectionString(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c.in, err)
		}
		if cfg.Scheme != c.scheme || cfg.Host != c.host || cfg.Port != c.port {
			t.Fatalf("%q: got %+v", c.in, cfg)
		}
	}
}

func TestParseConnectionStringSerial(t *testing.T) {
	cfg, err := ParseConnectionString("serial:/dev/ttyUSB0:57600")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheme != SchemeSerial || cfg.Device != "/dev/ttyUSB0" || cfg.Baud != 57600 {
		t.Fatalf("got %+v", cfg)
	}
}

func TestParseConnectionStringSerialDefaultBaud(t *testing.T) {
	cfg, err := ParseConnectionString("serial:/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Baud != DefaultSerialBaud {
		t.Fatalf("expected default baud %d, got %d", DefaultSerialBaud, cfg.Baud)
	}
}

func TestParseConnectionStringInvalid(t *testing.T) {
	for _, in := range []string{"garbage", "udpin:nocolon", "ftp:1.2.3.4:80"} {
		if _, err := ParseConnectionString(in); err == nil {
			t.Fatalf("%q: expected error", in)
		} else if !errors.Is(err, ErrInvalidConnectionString) && !errors.Is(err, ErrUnsupportedScheme) {
			t.Fatalf("%q: unexpected error type: %v", in, err)
		}
	}
}

func TestParseConnectionStringRejectsWellKnownPorts(t *testing.T) {
	// Ports below 1024 are reserved/privileged; the external-interface
	// contract only accepts 1024-65535.
	for _, in := range []string{"udpin:0.0.0.0:80", "tcpout:192.168.1.20:22", "udpout:10.0.0.1:0"} {
		if _, err := ParseConnectionString(in); !errors.Is(err, ErrInvalidConnectionString) {
			t.Fatalf("%q: expected ErrInvalidConnectionString, got %v", in, err)
		}
	}
}
