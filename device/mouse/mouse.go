// Package mouse provides boot-protocol and wheel HID mouse interfaces with
// relative motion reports.
package mouse

import (
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/dlkj/usbd-human-interface-device/usb"
	"github.com/dlkj/usbd-human-interface-device/usb/hid"
)

// Button bitmasks in the report's button byte.
const (
	ButtonLeft   = 0x01
	ButtonRight  = 0x02
	ButtonMiddle = 0x04
)

// BootReportLen is the size of the 3-byte boot mouse report.
const BootReportLen = 3

// WheelReportLen is the size of the wheel mouse report.
const WheelReportLen = 5

// BootReportDescriptor describes the 3-byte boot mouse report: three
// buttons and relative X/Y (HID 1.11 appendix B.2).
var BootReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageMouse},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				hid.Usage{Usage: hid.UsagePointer},
				hid.Collection{
					Kind: hid.CollectionPhysical,
					Items: []hid.Item{
						hid.ReportCount{Count: 3},
						hid.ReportSize{Bits: 1},
						hid.UsagePage{Page: hid.UsagePageButton},
						hid.UsageMinimum{Min: 0x01},
						hid.UsageMaximum{Max: 0x03},
						hid.LogicalMinimum{Min: 0},
						hid.LogicalMaximum{Max: 1},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
						hid.ReportCount{Count: 1},
						hid.ReportSize{Bits: 5},
						hid.Input{Flags: hid.MainConst},
						hid.ReportSize{Bits: 8},
						hid.ReportCount{Count: 2},
						hid.UsagePage{Page: hid.UsagePageGenericDesktop},
						hid.Usage{Usage: hid.UsageX},
						hid.Usage{Usage: hid.UsageY},
						hid.LogicalMinimum{Min: -127},
						hid.LogicalMaximum{Max: 127},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainRel},
					},
				},
			},
		},
	},
}.MustBytes()

// WheelReportDescriptor extends the boot layout with eight buttons, a
// vertical wheel and an AC Pan horizontal wheel.
var WheelReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageMouse},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				hid.Usage{Usage: hid.UsagePointer},
				hid.Collection{
					Kind: hid.CollectionPhysical,
					Items: []hid.Item{
						hid.ReportCount{Count: 8},
						hid.ReportSize{Bits: 1},
						hid.UsagePage{Page: hid.UsagePageButton},
						hid.UsageMinimum{Min: 0x01},
						hid.UsageMaximum{Max: 0x08},
						hid.LogicalMinimum{Min: 0},
						hid.LogicalMaximum{Max: 1},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
						hid.ReportSize{Bits: 8},
						hid.ReportCount{Count: 2},
						hid.UsagePage{Page: hid.UsagePageGenericDesktop},
						hid.Usage{Usage: hid.UsageX},
						hid.Usage{Usage: hid.UsageY},
						hid.LogicalMinimum{Min: -127},
						hid.LogicalMaximum{Max: 127},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainRel},
						hid.LogicalMinimum{Min: -127},
						hid.LogicalMaximum{Max: 127},
						hid.Usage{Usage: hid.UsageWheel},
						hid.ReportSize{Bits: 8},
						hid.ReportCount{Count: 1},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainRel},
						hid.UsagePage{Page: hid.UsagePageConsumer},
						hid.Usage{Usage: hid.UsageACPan},
						hid.ReportCount{Count: 1},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainRel},
					},
				},
			},
		},
	},
}.MustBytes()

// BootReport is the 3-byte boot mouse input report.
type BootReport struct {
	Buttons uint8
	X, Y    int8
}

// Bytes returns the 3-byte wire encoding.
func (r BootReport) Bytes() []byte {
	return []byte{r.Buttons, uint8(r.X), uint8(r.Y)}
}

// WheelReport is the wheel mouse input report: eight buttons, relative
// X/Y, vertical wheel and horizontal pan.
type WheelReport struct {
	Buttons uint8
	X, Y    int8
	Wheel   int8
	Pan     int8
}

// Bytes returns the 5-byte wire encoding.
func (r WheelReport) Bytes() []byte {
	return []byte{r.Buttons, uint8(r.X), uint8(r.Y), uint8(r.Wheel), uint8(r.Pan)}
}

// ConfigureBoot appends a boot mouse interface to b and returns b for
// chaining. Wrap the built interface with NewBoot.
func ConfigureBoot(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(BootReportDescriptor).
		Description("Mouse").
		BootDevice(usb.InterfaceProtocolMouse).
		InEndpoint(10).
		InputReport(0, BootReportLen).
		Done()
}

// ConfigureWheel appends a boot-compatible wheel mouse interface to b.
// Wrap the built interface with NewWheel.
func ConfigureWheel(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(WheelReportDescriptor).
		Description("Wheel Mouse").
		BootDevice(usb.InterfaceProtocolMouse).
		InEndpoint(10).
		InputReport(0, WheelReportLen).
		Done()
}

// BootMouse is the typed report layer over a boot mouse interface.
type BootMouse struct {
	iface *hidclass.Interface
}

// NewBoot wraps an interface built from ConfigureBoot.
func NewBoot(iface *hidclass.Interface) *BootMouse {
	return &BootMouse{iface: iface}
}

// Interface exposes the underlying HID interface.
func (m *BootMouse) Interface() *hidclass.Interface { return m.iface }

// WriteReport queues a mouse report for the host, replacing any unsent one.
// Motion deltas in an overwritten report are lost, so callers should
// accumulate deltas until the previous report has been polled.
func (m *BootMouse) WriteReport(r BootReport) error {
	return m.iface.WriteReport(r.Bytes())
}

// WheelMouse is the typed report layer over a wheel mouse interface.
type WheelMouse struct {
	iface *hidclass.Interface
}

// NewWheel wraps an interface built from ConfigureWheel.
func NewWheel(iface *hidclass.Interface) *WheelMouse {
	return &WheelMouse{iface: iface}
}

// Interface exposes the underlying HID interface.
func (m *WheelMouse) Interface() *hidclass.Interface { return m.iface }

// WriteReport queues a wheel mouse report for the host.
func (m *WheelMouse) WriteReport(r WheelReport) error {
	return m.iface.WriteReport(r.Bytes())
}
