package hidclass

// IdleRateMs converts an idle-rate byte (units of 4 ms, HID 1.11 7.2.4) to
// milliseconds.
func IdleRateMs(rate uint8) uint32 { return uint32(rate) * 4 }

// IdleTimer implements the HID idle-rate countdown for one interface.
// While the rate is non-zero, expiry of the countdown signals that the last
// transmitted input report should be retransmitted; a fresh transmission
// restarts the window (the idle period is relative to the last transmission,
// not the last state change, HID 1.11 7.2.4).
//
// Tick granularity is whatever period the owning dispatcher's Tick is called
// with. Callers wanting the nominal idle-rate precision must tick roughly
// every millisecond; coarser invocation degrades precision proportionally.
//
// IdleTimer is not safe for concurrent use; the owning Interface serializes
// access to it.
type IdleTimer struct {
	rate      uint8 // units of 4ms, 0 = periodic retransmission disabled
	remaining uint32
	last      [MaxReportSize]byte
	lastLen   int
	hasLast   bool
}

// Reset returns the timer to its post-configuration state: the default rate
// with a full countdown window and no remembered report.
func (t *IdleTimer) Reset(defaultRate uint8) {
	t.rate = defaultRate
	t.remaining = IdleRateMs(defaultRate)
	t.hasLast = false
	t.lastLen = 0
}

// Rate returns the current idle rate in 4 ms units.
func (t *IdleTimer) Rate() uint8 { return t.rate }

// SetRate applies a SET_IDLE rate change. Elapsed time in the current
// window carries over: if the new, shorter window has already passed, the
// next Tick signals immediately; otherwise the remainder of the new window
// is preserved. Rate zero disables periodic retransmission entirely.
func (t *IdleTimer) SetRate(rate uint8) {
	oldDur := IdleRateMs(t.rate)
	newDur := IdleRateMs(rate)
	t.rate = rate
	if rate == 0 {
		t.remaining = 0
		return
	}
	if oldDur == 0 {
		t.remaining = newDur
		return
	}
	elapsed := uint32(0)
	if oldDur > t.remaining {
		elapsed = oldDur - t.remaining
	}
	if elapsed >= newDur {
		// Retransmission is overdue under the new rate.
		t.remaining = 0
	} else {
		t.remaining = newDur - elapsed
	}
}

// NoteSent records a transmitted input report and restarts the idle window.
func (t *IdleTimer) NoteSent(report []byte) {
	t.lastLen = copy(t.last[:], report)
	t.hasLast = true
	t.remaining = IdleRateMs(t.rate)
}

// LastReport returns the most recently transmitted report, if any.
func (t *IdleTimer) LastReport() ([]byte, bool) {
	if !t.hasLast {
		return nil, false
	}
	return t.last[:t.lastLen], true
}

// Tick advances the countdown by elapsedMs. It returns true exactly once
// per elapsed idle window while the rate is non-zero, resetting the
// countdown for the next window. A zero rate never signals regardless of
// elapsed time.
func (t *IdleTimer) Tick(elapsedMs uint32) bool {
	if t.rate == 0 {
		return false
	}
	if elapsedMs >= t.remaining {
		t.remaining = IdleRateMs(t.rate)
		return true
	}
	t.remaining -= elapsedMs
	return false
}
