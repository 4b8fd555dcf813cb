// Package hidclass implements the USB HID device class protocol layer:
// descriptor assembly, report buffering, idle-rate timing, and boot/report
// protocol negotiation for one or more logical HID interfaces multiplexed
// onto a device's control and interrupt endpoints.
//
// The package sits between a USB bus driver (which owns enumeration and raw
// endpoint transfers) and concrete device logic such as the keyboard and
// mouse types under device/. Reports are opaque fixed-size byte payloads;
// their layout is supplied by the concrete device.
//
// All entry points are non-blocking. Anything that cannot complete
// immediately returns ErrWouldBlock instead of suspending, matching the
// cooperative poll-or-interrupt execution model of USB device hardware.
package hidclass

// HID class-specific request codes (HID 1.11 7.2).
const (
	RequestGetReport   = 0x01
	RequestGetIdle     = 0x02
	RequestGetProtocol = 0x03
	RequestSetReport   = 0x09
	RequestSetIdle     = 0x0A
	RequestSetProtocol = 0x0B
)

// Report types carried in the high byte of wValue for GET_REPORT and
// SET_REPORT (HID 1.11 7.2.1).
const (
	ReportTypeInput   = 0x01
	ReportTypeOutput  = 0x02
	ReportTypeFeature = 0x03
)

// Protocol is the active report encoding negotiated with the host.
type Protocol uint8

const (
	// ProtocolBoot selects the fixed legacy report layout usable by BIOS
	// and bootloader hosts without parsing a report descriptor.
	ProtocolBoot Protocol = 0x00
	// ProtocolReport selects the full report-descriptor-driven layout.
	// Devices default to it on reset (HID 1.11 7.2.6).
	ProtocolReport Protocol = 0x01
)

func (p Protocol) String() string {
	switch p {
	case ProtocolBoot:
		return "boot"
	case ProtocolReport:
		return "report"
	default:
		return "unknown"
	}
}

// MaxReportSize is the largest report payload the class buffers, matching
// the largest full-speed interrupt packet.
const MaxReportSize = 64

// MaxInterfaceCount bounds the number of interfaces one class instance can
// multiplex onto the shared control endpoint.
const MaxInterfaceCount = 8
