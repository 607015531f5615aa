package bridge

import (
	"errors"
	"net/netip"
	"time"

	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/core/decoder"
	"firestige.xyz/wfw/internal/metrics"
	"firestige.xyz/wfw/internal/session"
)

// parse applies the size policy and counts rejects.
func (e *Engine) parse(dir string, b []byte) (core.Frame, bool) {
	f, err := core.ParseFrame(b)
	if err == nil {
		return f, true
	}

	outcome := metrics.OutcomeTooShort
	if errors.Is(err, core.ErrFrameTooLarge) {
		outcome = metrics.OutcomeTooLarge
	}
	metrics.FramesTotal.WithLabelValues(dir, outcome).Inc()
	e.log.WithField("direction", dir).WithField("len", len(b)).WithError(err).Debug("frame rejected")
	return nil, false
}

// forwardOutbound moves one frame from the virtual interface to the
// transport: unicast when the destination is learned, broadcast otherwise.
func (e *Engine) forwardOutbound() {
	n, err := e.tap.Read(e.buf)
	if err != nil {
		e.dropFrame(metrics.DirOutbound, &core.ReceiveError{Source: sourceNames[srcTap], Err: err})
		return
	}
	f, ok := e.parse(metrics.DirOutbound, e.buf[:n])
	if !ok {
		return
	}

	if e.sessions.Outbound(f) {
		metrics.TrackedSessions.Set(float64(e.sessions.Sessions()))
	}

	to, unicast := e.table.Resolve(f.Dst())
	outcome := metrics.OutcomeUnicast
	if !unicast {
		to = e.opts.Broadcast
		outcome = metrics.OutcomeBroadcast
	}

	if e.log.IsDebugEnabled() {
		e.log.WithField("to", to.String()).Debug(decoder.Describe(f))
	}

	if _, err := e.out.WriteTo(f, to); err != nil {
		e.dropFrame(metrics.DirOutbound, &core.TransmitError{To: to.String(), Err: err})
		return
	}
	metrics.FramesTotal.WithLabelValues(metrics.DirOutbound, outcome).Inc()
	metrics.BytesTotal.WithLabelValues(metrics.DirOutbound).Add(float64(len(f)))
}

// forwardInbound moves one datagram from a socket to the virtual interface,
// learning the sender when the frame belongs to a tracked session.
func (e *Engine) forwardInbound(src int, conn PacketConn) {
	n, from, err := conn.ReadFrom(e.buf)
	if err != nil {
		e.dropFrame(metrics.DirInbound, &core.ReceiveError{Source: sourceNames[src], Err: err})
		return
	}
	f, ok := e.parse(metrics.DirInbound, e.buf[:n])
	if !ok {
		return
	}

	verdict := e.sessions.Inbound(f)
	metrics.InboundVerdictsTotal.WithLabelValues(verdict.String()).Inc()

	hw := f.Src()
	switch {
	case verdict.Learnable() && !hw.IsBroadcast():
		e.learn(hw, from)
	case verdict == session.VerdictUnsolicited:
		metrics.BlacklistedRemotes.Set(float64(e.sessions.BlacklistLen()))
		if !e.opts.Warnings.Allow(from.Addr(), time.Now()) {
			metrics.WarningsSuppressedTotal.Inc()
			break
		}
		e.log.WithField("from", from.String()).
			WithField("hwaddr", hw.String()).
			Warnf("unsolicited connection attempt, remote blacklisted: %s", decoder.Describe(f))
	}

	if e.log.IsDebugEnabled() {
		e.log.WithField("from", from.String()).
			WithField("socket", sourceNames[src]).
			WithField("verdict", verdict.String()).
			Debug(decoder.Describe(f))
	}

	flagged := verdict == session.VerdictUnsolicited || verdict == session.VerdictBlacklisted
	if flagged && e.opts.Blacklisted.Drop() {
		metrics.FramesTotal.WithLabelValues(metrics.DirInbound, metrics.OutcomeDropped).Inc()
		return
	}

	if _, err := e.tap.Write(f); err != nil {
		e.dropFrame(metrics.DirInbound, &core.TransmitError{To: sourceNames[srcTap], Err: err})
		return
	}
	metrics.FramesTotal.WithLabelValues(metrics.DirInbound, metrics.OutcomeDelivered).Inc()
	metrics.BytesTotal.WithLabelValues(metrics.DirInbound).Add(float64(len(f)))
}

func (e *Engine) learn(hw core.HardwareAddr, from netip.AddrPort) {
	prev, known := e.table.Resolve(hw)
	if !e.table.Learn(hw, from) {
		return
	}

	event := "new"
	entry := e.log.WithField("hwaddr", hw.String()).WithField("endpoint", from.String())
	if known {
		event = "roam"
		entry = entry.WithField("previous", prev.String())
	}
	metrics.LearnEventsTotal.WithLabelValues(event).Inc()
	metrics.LearnedAddresses.Set(float64(e.table.Len()))
	entry.Info("address learned")
}

// dropFrame counts and logs a frame lost to a steady-state I/O failure.
func (e *Engine) dropFrame(dir string, err error) {
	metrics.FramesTotal.WithLabelValues(dir, metrics.OutcomeError).Inc()
	e.log.WithError(err).Warn("frame dropped")
}
