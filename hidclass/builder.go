package hidclass

import (
	"fmt"
	"log/slog"

	"github.com/dlkj/usbd-human-interface-device/usb"
)

// Maximum idle duration expressible in the 4 ms idle-rate byte.
const maxIdleMs = 255 * 4

// defaultPollIntervalMs is used for endpoints that do not override it.
const defaultPollIntervalMs = 10

// Builder assembles a Class and its full descriptor set from per-interface
// configuration. Construction errors are collected and reported once from
// Build, so call chains stay uncluttered.
type Builder struct {
	vendorID     uint16
	productID    uint16
	deviceRelease uint16
	manufacturer string
	product      string
	serial       string
	log          *slog.Logger
	interfaces   []*InterfaceBuilder
	err          error
}

// NewBuilder starts a device definition for the given vendor and product ID.
func NewBuilder(vendorID, productID uint16) *Builder {
	return &Builder{
		vendorID:      vendorID,
		productID:     productID,
		deviceRelease: 0x0100,
	}
}

// Strings sets the device's manufacturer, product and serial number strings.
// Empty strings omit the corresponding descriptor.
func (b *Builder) Strings(manufacturer, product, serial string) *Builder {
	b.manufacturer = manufacturer
	b.product = product
	b.serial = serial
	return b
}

// DeviceRelease sets bcdDevice.
func (b *Builder) DeviceRelease(bcd uint16) *Builder {
	b.deviceRelease = bcd
	return b
}

// Logger sets the logger the class uses for control-path diagnostics.
func (b *Builder) Logger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// AddInterface appends a new interface definition and returns its builder.
// Interface and endpoint numbers are assigned in registration order.
func (b *Builder) AddInterface(reportDescriptor []byte) *InterfaceBuilder {
	ib := &InterfaceBuilder{parent: b, reportDescriptor: reportDescriptor}
	b.interfaces = append(b.interfaces, ib)
	return ib
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// InterfaceBuilder configures a single HID interface. Every method returns
// the receiver for chaining; Done returns to the device builder.
type InterfaceBuilder struct {
	parent           *Builder
	description      string
	bootProtocol     uint8
	defaultIdleRate  uint8
	reportDescriptor []byte
	in               *EndpointConfig
	out              *EndpointConfig
	inputReports     []ReportDecl
	outputReports    []ReportDecl
	featureReports   []ReportDecl
}

// Description sets the interface string descriptor.
func (ib *InterfaceBuilder) Description(s string) *InterfaceBuilder {
	ib.description = s
	return ib
}

// BootDevice marks the interface boot-compatible with the given interface
// protocol (usb.InterfaceProtocolKeyboard or usb.InterfaceProtocolMouse).
// Only boot-compatible interfaces accept SET_PROTOCOL.
func (ib *InterfaceBuilder) BootDevice(protocol uint8) *InterfaceBuilder {
	ib.bootProtocol = protocol
	return ib
}

// IdleDefaultMs sets the idle duration restored on reset, in milliseconds.
// The value is rounded up to the next 4 ms unit; durations above 1020 ms
// cannot be encoded and fail the build. Zero disables idle retransmission
// by default.
func (ib *InterfaceBuilder) IdleDefaultMs(ms int) *InterfaceBuilder {
	if ms < 0 || ms > maxIdleMs {
		ib.parent.fail(fmt.Errorf("%w: idle duration %dms", ErrValueOverflow, ms))
		return ib
	}
	ib.defaultIdleRate = uint8((ms + 3) / 4)
	return ib
}

// InEndpoint declares the interrupt IN endpoint with the given poll
// interval. Every interface that transmits input reports needs one.
func (ib *InterfaceBuilder) InEndpoint(pollIntervalMs uint8) *InterfaceBuilder {
	if pollIntervalMs == 0 {
		pollIntervalMs = defaultPollIntervalMs
	}
	ib.in = &EndpointConfig{PollIntervalMs: pollIntervalMs}
	return ib
}

// OutEndpoint declares an interrupt OUT endpoint with the given poll
// interval. Interfaces without one still receive output reports via
// SET_REPORT on the control pipe.
func (ib *InterfaceBuilder) OutEndpoint(pollIntervalMs uint8) *InterfaceBuilder {
	if pollIntervalMs == 0 {
		pollIntervalMs = defaultPollIntervalMs
	}
	ib.out = &EndpointConfig{PollIntervalMs: pollIntervalMs}
	return ib
}

// InputReport declares a device-to-host report. Size is the wire size,
// including the report ID prefix when the interface ends up numbered.
func (ib *InterfaceBuilder) InputReport(id uint8, size int) *InterfaceBuilder {
	ib.inputReports = ib.declare(ib.inputReports, id, size)
	return ib
}

// OutputReport declares a host-to-device report.
func (ib *InterfaceBuilder) OutputReport(id uint8, size int) *InterfaceBuilder {
	ib.outputReports = ib.declare(ib.outputReports, id, size)
	return ib
}

// FeatureReport declares a bidirectional feature report.
func (ib *InterfaceBuilder) FeatureReport(id uint8, size int) *InterfaceBuilder {
	ib.featureReports = ib.declare(ib.featureReports, id, size)
	return ib
}

func (ib *InterfaceBuilder) declare(decls []ReportDecl, id uint8, size int) []ReportDecl {
	if size <= 0 || size > MaxReportSize {
		ib.parent.fail(fmt.Errorf("%w: report size %d", ErrValueOverflow, size))
		return decls
	}
	for _, d := range decls {
		if d.ID == id {
			ib.parent.fail(fmt.Errorf("%w: duplicate report id %d", ErrValueOverflow, id))
			return decls
		}
	}
	return append(decls, ReportDecl{ID: id, Size: size})
}

// Done returns to the device builder.
func (ib *InterfaceBuilder) Done() *Builder { return ib.parent }

// Build assigns interface and endpoint numbers, bakes the descriptor set
// and returns the assembled Class. It fails on any error collected during
// configuration.
func (b *Builder) Build() (*Class, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.interfaces) == 0 {
		return nil, ErrNoInterfaces
	}
	if len(b.interfaces) > MaxInterfaceCount {
		return nil, ErrTooManyInterfaces
	}

	desc := &usb.Descriptor{
		Device: usb.DeviceDescriptor{
			BcdUSB:             0x0200,
			BMaxPacketSize0:    64,
			IDVendor:           b.vendorID,
			IDProduct:          b.productID,
			BcdDevice:          b.deviceRelease,
			BNumConfigurations: 1,
			Speed:              2, // full speed
		},
		Strings: map[uint8]string{},
	}
	nextString := uint8(1)
	addString := func(s string) uint8 {
		if s == "" {
			return 0
		}
		idx := nextString
		desc.Strings[idx] = s
		nextString++
		return idx
	}
	desc.Device.IManufacturer = addString(b.manufacturer)
	desc.Device.IProduct = addString(b.product)
	desc.Device.ISerialNumber = addString(b.serial)

	interfaces := make([]*Interface, 0, len(b.interfaces))
	for n, ib := range b.interfaces {
		number := uint8(n)
		epNum := uint8(n + 1)

		if ib.in != nil {
			ib.in.Address = usb.EndpointDirIn | epNum
			ib.in.MaxPacketSize = packetSizeFor(ib.inputReports)
		}
		if ib.out != nil {
			ib.out.Address = epNum
			ib.out.MaxPacketSize = packetSizeFor(ib.outputReports)
		}

		cfg := Config{
			Number:           number,
			Description:      ib.description,
			BootProtocol:     ib.bootProtocol,
			DefaultIdleRate:  ib.defaultIdleRate,
			ReportDescriptor: ib.reportDescriptor,
			In:               ib.in,
			Out:              ib.out,
			InputReports:     ib.inputReports,
			OutputReports:    ib.outputReports,
			FeatureReports:   ib.featureReports,
		}
		interfaces = append(interfaces, NewInterface(cfg))

		subclass := uint8(usb.SubclassNone)
		if ib.bootProtocol != usb.InterfaceProtocolNone {
			subclass = usb.SubclassBoot
		}
		var endpoints []usb.EndpointDescriptor
		if ib.in != nil {
			endpoints = append(endpoints, usb.EndpointDescriptor{
				BEndpointAddress: ib.in.Address,
				BMAttributes:     usb.EndpointAttrInterrupt,
				WMaxPacketSize:   ib.in.MaxPacketSize,
				BInterval:        ib.in.PollIntervalMs,
			})
		}
		if ib.out != nil {
			endpoints = append(endpoints, usb.EndpointDescriptor{
				BEndpointAddress: ib.out.Address,
				BMAttributes:     usb.EndpointAttrInterrupt,
				WMaxPacketSize:   ib.out.MaxPacketSize,
				BInterval:        ib.out.PollIntervalMs,
			})
		}
		desc.Interfaces = append(desc.Interfaces, usb.InterfaceConfig{
			Descriptor: usb.InterfaceDescriptor{
				BInterfaceNumber:   number,
				BNumEndpoints:      uint8(len(endpoints)),
				BInterfaceClass:    usb.ClassHID,
				BInterfaceSubClass: subclass,
				BInterfaceProtocol: ib.bootProtocol,
				IInterface:         addString(ib.description),
			},
			Endpoints:     endpoints,
			HIDDescriptor: usb.NewHIDDescriptor(len(ib.reportDescriptor)).Bytes(),
			HIDReport:     ib.reportDescriptor,
		})
	}

	return newClass(desc, interfaces, b.log), nil
}

// packetSizeFor returns the interrupt packet size covering every declared
// report, with a conventional 8-byte floor.
func packetSizeFor(decls []ReportDecl) uint16 {
	size := 8
	for _, d := range decls {
		if d.Size > size {
			size = d.Size
		}
	}
	return uint16(size)
}
