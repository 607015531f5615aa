package decoder

import (
	"errors"
	"testing"

	"firestige.xyz/wfw/internal/core"
)

func TestParseTCP(t *testing.T) {
	// Minimal TCP header (20 bytes)
	data := []byte{
		0xC3, 0x50, // Src Port: 50000
		0x01, 0xBB, // Dst Port: 443
		0x00, 0x00, 0x00, 0x01, // Seq Num: 1
		0x00, 0x00, 0x00, 0x02, // Ack Num: 2
		0x50,       // Data Offset: 5 (20 bytes)
		0x12,       // Flags: SYN + ACK
		0x20, 0x00, // Window Size
		0xBE, 0xEF, // Checksum
		0x00, 0x07, // Urgent Pointer
		0x01, 0x02, 0x03, 0x04, // Payload
	}

	seg, err := ParseTCP(data)
	if err != nil {
		t.Fatalf("ParseTCP failed: %v", err)
	}

	if seg.SrcPort() != 50000 {
		t.Errorf("Expected SrcPort 50000, got %d", seg.SrcPort())
	}
	if seg.DstPort() != 443 {
		t.Errorf("Expected DstPort 443, got %d", seg.DstPort())
	}
	if seg.Seq() != 1 {
		t.Errorf("Expected Seq 1, got %d", seg.Seq())
	}
	if seg.Ack() != 2 {
		t.Errorf("Expected Ack 2, got %d", seg.Ack())
	}
	if seg.HeaderLen() != 20 {
		t.Errorf("Expected HeaderLen 20, got %d", seg.HeaderLen())
	}
	if !seg.SYN() || !seg.ACK() {
		t.Errorf("Expected SYN and ACK set, flags=0x%02x", seg.Flags())
	}
	if seg.FIN() || seg.RST() || seg.PSH() || seg.URG() {
		t.Errorf("Unexpected flags set: 0x%02x", seg.Flags())
	}
	if seg.Window() != 0x2000 {
		t.Errorf("Expected Window 0x2000, got 0x%04x", seg.Window())
	}
	if seg.Checksum() != 0xBEEF {
		t.Errorf("Expected Checksum 0xBEEF, got 0x%04x", seg.Checksum())
	}
	if seg.Urgent() != 7 {
		t.Errorf("Expected Urgent 7, got %d", seg.Urgent())
	}
	if len(seg.Payload()) != 4 {
		t.Errorf("Expected payload length 4, got %d", len(seg.Payload()))
	}
}

func TestParseTCPFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags byte
		check func(TCPSegment) bool
	}{
		{"FIN", 0x01, TCPSegment.FIN},
		{"SYN", 0x02, TCPSegment.SYN},
		{"RST", 0x04, TCPSegment.RST},
		{"PSH", 0x08, TCPSegment.PSH},
		{"ACK", 0x10, TCPSegment.ACK},
		{"URG", 0x20, TCPSegment.URG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, 20)
			data[12] = 0x50
			data[13] = tt.flags | 0xC0 // reserved/ECN bits must be ignored

			seg, err := ParseTCP(data)
			if err != nil {
				t.Fatalf("ParseTCP failed: %v", err)
			}
			if !tt.check(seg) {
				t.Errorf("Expected %s set, flags=0x%02x", tt.name, seg.Flags())
			}
			if seg.Flags() != tt.flags {
				t.Errorf("Expected only %s, got 0x%02x", tt.name, seg.Flags())
			}
		})
	}
}

func TestParseTCPWithOptions(t *testing.T) {
	data := make([]byte, 24+3)
	data[12] = 0x60 // Data Offset: 6 (24 bytes)

	seg, err := ParseTCP(data)
	if err != nil {
		t.Fatalf("ParseTCP failed: %v", err)
	}
	if len(seg.Payload()) != 3 {
		t.Errorf("Expected payload length 3, got %d", len(seg.Payload()))
	}
}

func TestParseTCPTooShort(t *testing.T) {
	_, err := ParseTCP(make([]byte, 19))
	if !errors.Is(err, core.ErrPacketTooShort) {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}

func TestParseTCPBadDataOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset byte
	}{
		{"below minimum", 0x40}, // 16 bytes
		{"beyond data", 0xF0},   // 60 bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, 20)
			data[12] = tt.offset
			if _, err := ParseTCP(data); !errors.Is(err, core.ErrPacketTooShort) {
				t.Errorf("Expected ErrPacketTooShort, got %v", err)
			}
		})
	}
}
