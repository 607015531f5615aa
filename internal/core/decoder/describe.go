package decoder

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/wfw/internal/core"
)

// Describe renders a one-line summary of a frame for debug logging, e.g.
// "Ethernet/IPv6/TCP [2001:db8::1]:50000->[2001:db8::2]:443 SYN".
// It decodes the full layer stack, so callers should only use it when
// debug logging is enabled.
func Describe(f core.Frame) string {
	pkt := gopacket.NewPacket(f, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	var names []string
	for _, l := range pkt.Layers() {
		if l.LayerType() == gopacket.LayerTypePayload {
			continue
		}
		names = append(names, l.LayerType().String())
	}
	summary := strings.Join(names, "/")

	nl := pkt.NetworkLayer()
	if nl == nil {
		return fmt.Sprintf("%s %s->%s len=%d", summary, f.Src(), f.Dst(), len(f))
	}
	src, dst := nl.NetworkFlow().Endpoints()

	switch tl := pkt.TransportLayer().(type) {
	case *layers.TCP:
		return fmt.Sprintf("%s [%s]:%d->[%s]:%d%s", summary, src, tl.SrcPort, dst, tl.DstPort, tcpFlagString(tl))
	case *layers.UDP:
		return fmt.Sprintf("%s [%s]:%d->[%s]:%d", summary, src, tl.SrcPort, dst, tl.DstPort)
	default:
		return fmt.Sprintf("%s %s->%s", summary, src, dst)
	}
}

func tcpFlagString(t *layers.TCP) string {
	var b strings.Builder
	for _, f := range []struct {
		set  bool
		name string
	}{{t.SYN, "SYN"}, {t.ACK, "ACK"}, {t.FIN, "FIN"}, {t.RST, "RST"}, {t.PSH, "PSH"}, {t.URG, "URG"}} {
		if f.set {
			b.WriteByte(' ')
			b.WriteString(f.name)
		}
	}
	return b.String()
}
