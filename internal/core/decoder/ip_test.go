package decoder

import (
	"errors"
	"net/netip"
	"testing"

	"firestige.xyz/wfw/internal/core"
)

func ipv6Bytes() []byte {
	// Minimal IPv6 header (40 bytes) + 4 bytes payload + 2 bytes link padding
	data := make([]byte, 40+4+2)

	// Version 6, Traffic Class 0xAB, Flow Label 0xCDEF1
	data[0], data[1], data[2], data[3] = 0x6A, 0xBC, 0xDE, 0xF1

	// Payload Length
	data[4], data[5] = 0x00, 0x04

	// Next Header: TCP
	data[6] = 6

	// Hop Limit
	data[7] = 64

	// Source IP: 2001:db8::1
	copy(data[8:24], []byte{
		0x20, 0x01, 0x0d, 0xb8, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
	})

	// Destination IP: 2001:db8::2
	copy(data[24:40], []byte{
		0x20, 0x01, 0x0d, 0xb8, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02,
	})

	data[40], data[41], data[42], data[43] = 0x01, 0x02, 0x03, 0x04
	return data
}

func TestParseIPv6Fields(t *testing.T) {
	ip, err := ParseIPv6(ipv6Bytes())
	if err != nil {
		t.Fatalf("ParseIPv6 failed: %v", err)
	}

	if ip.Version() != 6 {
		t.Errorf("Expected version 6, got %d", ip.Version())
	}
	if ip.TrafficClass() != 0xAB {
		t.Errorf("Expected traffic class 0xAB, got 0x%02x", ip.TrafficClass())
	}
	if ip.FlowLabel() != 0xCDEF1 {
		t.Errorf("Expected flow label 0xCDEF1, got 0x%05x", ip.FlowLabel())
	}
	if ip.PayloadLength() != 4 {
		t.Errorf("Expected payload length 4, got %d", ip.PayloadLength())
	}
	if ip.NextHeader() != core.ProtocolTCP {
		t.Errorf("Expected next header 6, got %d", ip.NextHeader())
	}
	if ip.HopLimit() != 64 {
		t.Errorf("Expected hop limit 64, got %d", ip.HopLimit())
	}

	expectedSrc := netip.MustParseAddr("2001:db8::1")
	if ip.Src() != expectedSrc {
		t.Errorf("Expected Src %v, got %v", expectedSrc, ip.Src())
	}
	expectedDst := netip.MustParseAddr("2001:db8::2")
	if ip.Dst() != expectedDst {
		t.Errorf("Expected Dst %v, got %v", expectedDst, ip.Dst())
	}

	// Padding after the declared payload is not part of the payload
	if len(ip.Payload()) != 4 {
		t.Errorf("Expected payload length 4, got %d", len(ip.Payload()))
	}
}

func TestParseIPv6TruncatedPayload(t *testing.T) {
	data := ipv6Bytes()[:42] // header + 2 of the 4 declared payload bytes

	ip, err := ParseIPv6(data)
	if err != nil {
		t.Fatalf("ParseIPv6 failed: %v", err)
	}
	if len(ip.Payload()) != 2 {
		t.Errorf("Expected payload clipped to 2 bytes, got %d", len(ip.Payload()))
	}
}

func TestParseIPv6TooShort(t *testing.T) {
	_, err := ParseIPv6(make([]byte, 39))
	if !errors.Is(err, core.ErrPacketTooShort) {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}

func TestParseIPv6WrongVersion(t *testing.T) {
	data := ipv6Bytes()
	data[0] = 0x45 // IPv4 version nibble

	_, err := ParseIPv6(data)
	if !errors.Is(err, core.ErrUnsupportedProto) {
		t.Errorf("Expected ErrUnsupportedProto, got %v", err)
	}
}

func BenchmarkParseIPv6(b *testing.B) {
	data := ipv6Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ip, err := ParseIPv6(data)
		if err != nil {
			b.Fatal(err)
		}
		_ = ip.Src()
	}
}
