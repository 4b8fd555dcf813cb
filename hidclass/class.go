package hidclass

import (
	"errors"
	"log/slog"

	"github.com/dlkj/usbd-human-interface-device/usb"
)

// Class multiplexes one or more HID interfaces onto a single USB device:
// it owns the assembled descriptor set, routes EP0 requests to the
// addressed interface, services interrupt endpoints, and drives idle
// timing. Instances are assembled with a Builder.
//
// Class implements usb.Device, usb.ControlHandler, usb.Ticker and
// usb.Resetter, so it plugs directly into any bus driver speaking those
// interfaces. For device stacks exposing a push-style endpoint transport,
// Poll services every interface against a usb.Bus instead.
type Class struct {
	descriptor *usb.Descriptor
	interfaces []*Interface
	byNumber   map[uint8]*Interface
	byInEp     map[uint8]*Interface
	byOutEp    map[uint8]*Interface
	log        *slog.Logger
}

var _ usb.Device = (*Class)(nil)
var _ usb.ControlHandler = (*Class)(nil)
var _ usb.Ticker = (*Class)(nil)
var _ usb.Resetter = (*Class)(nil)

func newClass(descriptor *usb.Descriptor, interfaces []*Interface, log *slog.Logger) *Class {
	if log == nil {
		log = slog.Default()
	}
	c := &Class{
		descriptor: descriptor,
		interfaces: interfaces,
		byNumber:   make(map[uint8]*Interface),
		byInEp:     make(map[uint8]*Interface),
		byOutEp:    make(map[uint8]*Interface),
		log:        log,
	}
	for _, i := range interfaces {
		c.byNumber[i.Number()] = i
		if i.cfg.In != nil {
			c.byInEp[i.cfg.In.Address&^usb.EndpointDirIn] = i
		}
		if i.cfg.Out != nil {
			c.byOutEp[i.cfg.Out.Address] = i
		}
	}
	return c
}

// GetDescriptor returns the device's static descriptor set.
func (c *Class) GetDescriptor() *usb.Descriptor { return c.descriptor }

// ConfigDescriptorBytes returns the full configuration descriptor,
// including every interface's HID class descriptor.
func (c *Class) ConfigDescriptorBytes() []byte { return c.descriptor.ConfigBytes() }

// Interfaces returns the interfaces in registration order.
func (c *Class) Interfaces() []*Interface { return c.interfaces }

// Interface returns the interface registered with the given number.
func (c *Class) Interface(number uint8) (*Interface, bool) {
	i, ok := c.byNumber[number]
	return i, ok
}

// Reset returns every interface to USB reset defaults. The bus driver
// calls it on bus reset and on SET_CONFIGURATION.
func (c *Class) Reset() {
	for _, i := range c.interfaces {
		i.Reset()
	}
}

// Tick advances idle timing on every interface by elapsedMs.
func (c *Class) Tick(elapsedMs uint32) {
	for _, i := range c.interfaces {
		i.Tick(elapsedMs)
	}
}

// HandleControl services EP0 requests addressed to the class's interfaces:
// HID class requests and the interface-recipient GET_DESCRIPTOR for HID
// and Report descriptors. Requests for other recipients or unrecognized
// descriptors return ErrNotHandled so the bus driver can process them;
// any other error must be surfaced to the host as a STALL.
func (c *Class) HandleControl(setup usb.SetupPacket, out []byte) ([]byte, error) {
	if setup.Recipient() != usb.RequestRecipientInterface {
		return nil, ErrNotHandled
	}
	iface, ok := c.byNumber[uint8(setup.Index)]
	if !ok {
		c.log.Warn("control request for unknown interface",
			"interface", setup.Index, "request", setup.Request)
		return nil, ErrUnknownInterface
	}

	switch setup.Type() {
	case usb.RequestTypeStandard:
		if setup.Request == usb.RequestGetDescriptor {
			return c.getClassDescriptor(iface, setup)
		}
		return nil, ErrNotHandled
	case usb.RequestTypeClass:
		return c.classRequest(iface, setup, out)
	default:
		return nil, ErrNotHandled
	}
}

func (c *Class) getClassDescriptor(iface *Interface, setup usb.SetupPacket) ([]byte, error) {
	switch setup.DescriptorType() {
	case usb.HIDDescType:
		desc := usb.NewHIDDescriptor(len(iface.cfg.ReportDescriptor)).Bytes()
		return truncate(desc, setup.Length), nil
	case usb.ReportDescType:
		c.log.Debug("serving report descriptor",
			"interface", iface.Number(), "len", len(iface.cfg.ReportDescriptor))
		return truncate(iface.cfg.ReportDescriptor, setup.Length), nil
	default:
		return nil, ErrNotHandled
	}
}

func (c *Class) classRequest(iface *Interface, setup usb.SetupPacket, out []byte) ([]byte, error) {
	var reply []byte
	var err error
	switch setup.Request {
	case RequestGetReport:
		reply, err = iface.getReport(setup)
	case RequestSetReport:
		err = iface.setReport(setup, out)
	case RequestGetIdle:
		reply, err = iface.getIdle(setup)
	case RequestSetIdle:
		err = iface.setIdle(setup)
	case RequestGetProtocol:
		reply, err = iface.getProtocol()
	case RequestSetProtocol:
		err = iface.setProtocol(setup)
	default:
		err = ErrNotHandled
	}
	if err != nil {
		if !errors.Is(err, ErrNotHandled) {
			c.log.Debug("rejecting class request",
				"interface", iface.Number(), "request", setup.Request,
				"value", setup.Value, "error", err)
		}
		return nil, err
	}
	return truncate(reply, setup.Length), nil
}

// HandleTransfer services interrupt endpoint traffic in the pull model used
// by USB/IP style transports: IN transfers consume the next pending report
// (or idle retransmission) for the endpoint's interface, OUT transfers feed
// the interface's output buffer.
func (c *Class) HandleTransfer(ep uint32, dir uint32, out []byte) []byte {
	if dir == usb.DirIn {
		iface, ok := c.byInEp[uint8(ep)]
		if !ok {
			return nil
		}
		var buf [MaxReportSize]byte
		if n, ok := iface.popInput(buf[:]); ok {
			return buf[:n]
		}
		return nil
	}
	iface, ok := c.byOutEp[uint8(ep)]
	if !ok {
		return nil
	}
	if err := iface.output.Write(out); err != nil {
		c.log.Warn("dropping malformed output report",
			"interface", iface.Number(), "len", len(out), "error", err)
	}
	return nil
}

// Poll services every interface once against a push-style endpoint
// transport: pending input reports (and due idle retransmissions) are
// written to their IN endpoints, and arrived OUT data is drained into the
// output buffers. Interfaces are visited in registration order. Poll never
// blocks; a busy IN endpoint leaves the report pending for the next poll.
func (c *Class) Poll(bus usb.Bus) {
	var buf [MaxReportSize]byte
	for _, iface := range c.interfaces {
		if iface.cfg.In != nil && iface.hasPendingInput() {
			if n, ok := iface.startTransmission(buf[:]); ok {
				if _, err := bus.WriteEndpoint(iface.cfg.In.Address, buf[:n]); err != nil {
					if errors.Is(err, usb.ErrEndpointBusy) {
						// The report stays in flight and is retried
						// next poll, unless a fresh write for its ID
						// supersedes it in the meantime.
					} else {
						c.log.Warn("endpoint write failed",
							"interface", iface.Number(), "endpoint", iface.cfg.In.Address, "error", err)
						iface.abortTransmission()
					}
				} else {
					iface.finishTransmission()
				}
			}
		}
		if iface.cfg.Out != nil {
			n, err := bus.ReadEndpoint(iface.cfg.Out.Address, buf[:])
			if err == nil && n > 0 {
				if werr := iface.output.Write(buf[:n]); werr != nil {
					c.log.Warn("dropping malformed output report",
						"interface", iface.Number(), "len", n, "error", werr)
				}
			}
		}
	}
}

// truncate limits an IN reply to the host's wLength.
func truncate(data []byte, wLength uint16) []byte {
	if len(data) > int(wLength) {
		return data[:wLength]
	}
	return data
}
