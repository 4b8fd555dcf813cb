package usb

import "errors"

// Endpoint transport errors. Both are retryable on a later poll.
var (
	// ErrEndpointBusy means an IN endpoint still holds untransmitted data.
	ErrEndpointBusy = errors.New("usb: endpoint busy")
	// ErrNoData means an OUT endpoint has nothing to read.
	ErrNoData = errors.New("usb: no data available")
)

// Device is the minimal interface a device must implement.
// It only handles non-EP0 (interrupt/bulk) transfers.
type Device interface {
	// HandleTransfer processes a non-EP0 transfer (interrupt/bulk).
	// ep is the endpoint number (without direction). dir is DirIn or DirOut.
	// For IN transfers, return the payload to send; for OUT, consume 'out'
	// and return nil. A nil return on IN means nothing to transmit.
	HandleTransfer(ep uint32, dir uint32, out []byte) []byte
	GetDescriptor() *Descriptor
}

// Transfer directions for Device.HandleTransfer.
const (
	DirOut uint32 = 0
	DirIn  uint32 = 1
)

// ControlHandler is implemented by devices that service EP0 requests
// addressed to their interfaces (class-specific requests and
// interface-recipient standard requests such as GET_DESCRIPTOR for HID and
// Report descriptors). The returned payload is sent to the host for IN
// requests; nil with a nil error acknowledges an OUT request. A non-nil
// error rejects the request, which the bus driver must surface as a
// protocol STALL.
type ControlHandler interface {
	HandleControl(setup SetupPacket, out []byte) ([]byte, error)
}

// Ticker is implemented by devices needing periodic service, such as HID
// idle-rate retransmission. The bus driver calls Tick with the elapsed
// milliseconds since the previous call; precision of time-based features
// degrades proportionally with the invocation period.
type Ticker interface {
	Tick(elapsedMs uint32)
}

// Resetter is implemented by devices holding per-configuration state that a
// bus reset must return to defaults.
type Resetter interface {
	Reset()
}

// Bus is the endpoint transport supplied by an underlying device stack for
// push-model integration: the device writes IN data and reads OUT data as
// endpoints become free. All methods are non-blocking.
type Bus interface {
	// WriteEndpoint queues data on an interrupt IN endpoint. Returns
	// ErrEndpointBusy if the previous transfer has not completed.
	WriteEndpoint(ep uint8, data []byte) (int, error)
	// ReadEndpoint reads pending data from an interrupt OUT endpoint into
	// buf. Returns ErrNoData if nothing has arrived.
	ReadEndpoint(ep uint8, buf []byte) (int, error)
}
