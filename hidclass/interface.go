package hidclass

import (
	"sync"

	"github.com/dlkj/usbd-human-interface-device/usb"
)

// EndpointConfig describes one interrupt endpoint of an interface.
type EndpointConfig struct {
	Address        uint8 // includes the direction bit for IN endpoints
	MaxPacketSize  uint16
	PollIntervalMs uint8
}

// Config is the complete static description of one HID interface, produced
// by the builder. All fields are fixed for the lifetime of the interface;
// mutable protocol state lives on Interface.
type Config struct {
	Number      uint8
	Description string

	// BootProtocol is usb.InterfaceProtocolKeyboard or
	// usb.InterfaceProtocolMouse for boot-compatible interfaces, or
	// usb.InterfaceProtocolNone. Only boot-compatible interfaces accept
	// SET_PROTOCOL.
	BootProtocol uint8

	// DefaultIdleRate in 4 ms units, restored on reset.
	DefaultIdleRate uint8

	ReportDescriptor []byte

	In  *EndpointConfig
	Out *EndpointConfig

	InputReports   []ReportDecl
	OutputReports  []ReportDecl
	FeatureReports []ReportDecl
}

// Interface is the protocol state machine for a single HID interface: its
// negotiated protocol, idle timing, and per-direction report buffers.
// Application code exchanges reports through WriteReport and ReadReport;
// the class dispatcher drives the host-facing side.
type Interface struct {
	cfg Config

	// mu guards protocol and idle state; report buffers carry their own
	// locks so the application side never contends with control traffic.
	mu         sync.Mutex
	protocol   Protocol
	idle       IdleTimer
	reportIdle map[uint8]uint8 // per-report-ID SET_IDLE rates, served on GET_IDLE
	idleDue    bool

	// inFlight holds a report popped for an endpoint write that has not
	// completed yet, so a busy endpoint never feeds it back into the
	// application-facing buffer.
	inFlight    [MaxReportSize]byte
	inFlightLen int
	inFlightSet bool

	input   *ReportBuffer
	output  *ReportBuffer
	feature *ReportBuffer

	onSetReport func(reportType uint8, report []byte)
}

// NewInterface builds an interface from its static configuration and puts
// it in the post-reset state.
func NewInterface(cfg Config) *Interface {
	i := &Interface{
		cfg:     cfg,
		input:   NewReportBuffer(cfg.InputReports),
		output:  NewReportBuffer(cfg.OutputReports),
		feature: NewReportBuffer(cfg.FeatureReports),
	}
	i.Reset()
	return i
}

// Config returns the static configuration the interface was built from.
func (i *Interface) Config() Config { return i.cfg }

// Number returns the bInterfaceNumber this interface answers for.
func (i *Interface) Number() uint8 { return i.cfg.Number }

// Reset returns all negotiated state to USB reset defaults: report
// protocol, the configured default idle rate, and empty buffers. Report
// declarations and descriptors are untouched.
func (i *Interface) Reset() {
	i.mu.Lock()
	i.protocol = ProtocolReport
	i.idle.Reset(i.cfg.DefaultIdleRate)
	i.reportIdle = nil
	i.idleDue = false
	i.inFlightSet = false
	i.mu.Unlock()
	i.input.Clear()
	i.output.Clear()
	i.feature.Clear()
}

// Protocol returns the currently negotiated protocol.
func (i *Interface) Protocol() Protocol {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.protocol
}

// IdleRate returns the active idle rate in 4 ms units for the given report
// ID (0 for the global rate).
func (i *Interface) IdleRate(reportID uint8) uint8 {
	i.mu.Lock()
	defer i.mu.Unlock()
	if reportID != 0 {
		if r, ok := i.reportIdle[reportID]; ok {
			return r
		}
	}
	return i.idle.Rate()
}

// WriteReport queues an input report for transmission to the host,
// replacing any unsent report with the same ID. It never blocks.
func (i *Interface) WriteReport(report []byte) error {
	return i.input.Write(report)
}

// ReadReport copies the next host-to-device output report into buf and
// consumes it. It returns ErrWouldBlock when nothing has arrived.
func (i *Interface) ReadReport(buf []byte) (int, error) {
	return i.output.Read(buf)
}

// ReadFeature consumes the pending feature report for reportID, if any.
func (i *Interface) ReadFeature(reportID uint8, buf []byte) (int, bool) {
	return i.feature.Take(reportID, buf)
}

// WriteFeature stores a feature report to be returned on the next
// GET_REPORT(Feature) for its ID.
func (i *Interface) WriteFeature(report []byte) error {
	return i.feature.Write(report)
}

// SetReportCallback registers fn to be invoked from the control context
// whenever the host delivers a report via SET_REPORT, after the report has
// been buffered. fn must not block.
func (i *Interface) SetReportCallback(fn func(reportType uint8, report []byte)) {
	i.onSetReport = fn
}

// Tick advances the idle countdown. When the idle window elapses and a
// report has been transmitted before, the next poll retransmits it.
func (i *Interface) Tick(elapsedMs uint32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.idle.Tick(elapsedMs) {
		if _, ok := i.idle.LastReport(); ok {
			i.idleDue = true
		}
	}
}

// popInput returns the next input report to transmit, consuming it and
// restarting the idle window. A freshly written report always wins over an
// idle retransmission. ok is false when there is nothing to send.
func (i *Interface) popInput(buf []byte) (n int, ok bool) {
	if n, err := i.input.Read(buf); err == nil {
		i.mu.Lock()
		i.idle.NoteSent(buf[:n])
		i.idleDue = false
		i.mu.Unlock()
		return n, true
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.idleDue {
		if last, ok := i.idle.LastReport(); ok {
			n := copy(buf, last)
			i.idle.NoteSent(buf[:n])
			i.idleDue = false
			return n, true
		}
		i.idleDue = false
	}
	return 0, false
}

// startTransmission returns the next report to write to the IN endpoint
// without committing it: the report stays in flight until
// finishTransmission records a successful write or abortTransmission drops
// it. An undelivered in-flight report is retried ahead of the buffer,
// unless the application has since written a fresh report for the same ID,
// in which case the stale one is discarded and the fresh value goes out.
func (i *Interface) startTransmission(buf []byte) (n int, ok bool) {
	i.mu.Lock()
	if i.inFlightSet {
		flight := i.inFlight[:i.inFlightLen]
		if !i.input.Holds(i.input.payloadID(flight)) {
			n := copy(buf, flight)
			i.mu.Unlock()
			return n, true
		}
		i.inFlightSet = false
	}
	i.mu.Unlock()
	if n, err := i.input.Read(buf); err == nil {
		i.mu.Lock()
		i.inFlightLen = copy(i.inFlight[:], buf[:n])
		i.inFlightSet = true
		i.mu.Unlock()
		return n, true
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.idleDue {
		if last, ok := i.idle.LastReport(); ok {
			n := copy(buf, last)
			i.inFlightLen = copy(i.inFlight[:], buf[:n])
			i.inFlightSet = true
			return n, true
		}
		i.idleDue = false
	}
	return 0, false
}

// finishTransmission commits the in-flight report after a successful
// endpoint write, restarting the idle window from the moment of delivery.
func (i *Interface) finishTransmission() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.inFlightSet {
		return
	}
	i.idle.NoteSent(i.inFlight[:i.inFlightLen])
	i.idleDue = false
	i.inFlightSet = false
}

// abortTransmission drops the in-flight report after an unrecoverable
// endpoint error. The idle state keeps the previously delivered report.
func (i *Interface) abortTransmission() {
	i.mu.Lock()
	i.inFlightSet = false
	i.mu.Unlock()
}

// hasPendingInput reports whether the next poll would transmit something,
// without consuming it.
func (i *Interface) hasPendingInput() bool {
	i.mu.Lock()
	if i.inFlightSet || i.idleDue {
		i.mu.Unlock()
		return true
	}
	i.mu.Unlock()
	_, ok := i.input.Pending()
	return ok
}

func (i *Interface) getReport(setup usb.SetupPacket) ([]byte, error) {
	reportType := uint8(setup.Value >> 8)
	reportID := uint8(setup.Value)

	var buf *ReportBuffer
	switch reportType {
	case ReportTypeInput:
		buf = i.input
	case ReportTypeOutput:
		buf = i.output
	case ReportTypeFeature:
		buf = i.feature
	default:
		return nil, ErrUnsupportedReportID
	}

	size, ok := buf.Declares(reportID)
	if !ok {
		return nil, ErrUnsupportedReportID
	}
	reply := make([]byte, size)
	if n, ok := buf.Get(reportID, reply); ok {
		return reply[:n], nil
	}
	// Nothing pending: answer with a zeroed report of the declared size so
	// the host's control read still completes (HID 1.11 7.2.1 requires a
	// current report, and all-zero is the canonical idle state).
	if buf.Numbered() && size > 0 {
		reply[0] = reportID
	}
	return reply, nil
}

func (i *Interface) setReport(setup usb.SetupPacket, data []byte) error {
	reportType := uint8(setup.Value >> 8)
	reportID := uint8(setup.Value)

	var buf *ReportBuffer
	switch reportType {
	case ReportTypeOutput:
		buf = i.output
	case ReportTypeFeature:
		buf = i.feature
	default:
		return ErrUnsupportedReportID
	}
	// The wValue low byte must agree with the payload: the leading ID byte
	// for numbered reports, zero otherwise (HID 1.11 7.2.2).
	if buf.Numbered() {
		if len(data) == 0 || data[0] != reportID {
			return ErrUnsupportedReportID
		}
	} else if reportID != 0 {
		return ErrUnsupportedReportID
	}
	if err := buf.Write(data); err != nil {
		return err
	}
	if i.onSetReport != nil {
		i.onSetReport(reportType, data)
	}
	return nil
}

func (i *Interface) getIdle(setup usb.SetupPacket) ([]byte, error) {
	reportID := uint8(setup.Value)
	if reportID != 0 {
		if _, ok := i.input.Declares(reportID); !ok {
			return nil, ErrUnsupportedReportID
		}
	}
	return []byte{i.IdleRate(reportID)}, nil
}

func (i *Interface) setIdle(setup usb.SetupPacket) error {
	rate := uint8(setup.Value >> 8)
	reportID := uint8(setup.Value)

	i.mu.Lock()
	defer i.mu.Unlock()
	if reportID == 0 {
		// Report ID zero applies the rate to every report and discards
		// previously set per-report rates (HID 1.11 7.2.4).
		i.idle.SetRate(rate)
		i.reportIdle = nil
		if rate == 0 {
			i.idleDue = false
		}
		return nil
	}
	if _, ok := i.input.Declares(reportID); !ok {
		return ErrUnsupportedReportID
	}
	if i.reportIdle == nil {
		i.reportIdle = make(map[uint8]uint8)
	}
	i.reportIdle[reportID] = rate
	return nil
}

func (i *Interface) getProtocol() ([]byte, error) {
	return []byte{uint8(i.Protocol())}, nil
}

func (i *Interface) setProtocol(setup usb.SetupPacket) error {
	if i.cfg.BootProtocol == usb.InterfaceProtocolNone {
		return ErrInvalidProtocol
	}
	p := Protocol(setup.Value)
	if p != ProtocolBoot && p != ProtocolReport {
		return ErrInvalidProtocol
	}
	i.mu.Lock()
	i.protocol = p
	i.mu.Unlock()
	return nil
}
