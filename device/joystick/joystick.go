// Package joystick provides a two-axis, eight-button HID joystick
// interface.
package joystick

import (
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/dlkj/usbd-human-interface-device/usb/hid"
)

// ReportLen is the size of the joystick input report.
const ReportLen = 3

// ReportDescriptor describes the 3-byte joystick report: signed X/Y axes
// followed by an eight-button bitmap.
var ReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageJoystick},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				hid.Usage{Usage: hid.UsagePointer},
				hid.Collection{
					Kind: hid.CollectionPhysical,
					Items: []hid.Item{
						hid.Usage{Usage: hid.UsageX},
						hid.Usage{Usage: hid.UsageY},
						hid.LogicalMinimum{Min: -127},
						hid.LogicalMaximum{Max: 127},
						hid.ReportSize{Bits: 8},
						hid.ReportCount{Count: 2},
						hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
					},
				},
				hid.UsagePage{Page: hid.UsagePageButton},
				hid.UsageMinimum{Min: 0x01},
				hid.UsageMaximum{Max: 0x08},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.ReportSize{Bits: 1},
				hid.ReportCount{Count: 8},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
			},
		},
	},
}.MustBytes()

// Report is the joystick input report.
type Report struct {
	X, Y    int8
	Buttons uint8
}

// Bytes returns the 3-byte wire encoding.
func (r Report) Bytes() []byte {
	return []byte{uint8(r.X), uint8(r.Y), r.Buttons}
}

// Configure appends a joystick interface to b and returns b for chaining.
// Wrap the built interface with New.
func Configure(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(ReportDescriptor).
		Description("Joystick").
		InEndpoint(10).
		InputReport(0, ReportLen).
		Done()
}

// Joystick is the typed report layer over a joystick interface.
type Joystick struct {
	iface *hidclass.Interface
}

// New wraps an interface built from Configure.
func New(iface *hidclass.Interface) *Joystick {
	return &Joystick{iface: iface}
}

// Interface exposes the underlying HID interface.
func (j *Joystick) Interface() *hidclass.Interface { return j.iface }

// WriteReport queues a joystick report for the host, replacing any unsent
// one.
func (j *Joystick) WriteReport(r Report) error {
	return j.iface.WriteReport(r.Bytes())
}
