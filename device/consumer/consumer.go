// Package consumer provides HID consumer-control interfaces for media and
// application keys: an arbitrary-code variant carrying up to four usage
// codes per report and a compact fixed-function variant.
package consumer

import (
	"encoding/binary"

	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/dlkj/usbd-human-interface-device/usb/hid"
)

// MultipleReportLen is the size of the four-code input report.
const MultipleReportLen = 8

// FixedReportLen is the size of the fixed-function input report.
const FixedReportLen = 1

// MultipleReportDescriptor describes a report of four 16-bit consumer
// usage codes. Unused slots carry usage 0.
var MultipleReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageConsumer},
		hid.Usage{Usage: hid.UsageConsumerControl},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				hid.ReportSize{Bits: 16},
				hid.ReportCount{Count: 4},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: int32(hid.UsageConsumerControlLast)},
				hid.UsageMinimum{Min: 0x00},
				hid.UsageMaximum{Max: hid.UsageConsumerControlLast},
				hid.Input{Flags: hid.MainData | hid.MainArray},
			},
		},
	},
}.MustBytes()

// Fixed-function report bitmasks.
const (
	FixedNextTrack     = 0x01
	FixedPreviousTrack = 0x02
	FixedStop          = 0x04
	FixedPlayPause     = 0x08
	FixedMute          = 0x10
	FixedVolumeUp      = 0x20
	FixedVolumeDown    = 0x40
)

// FixedReportDescriptor describes a 1-byte report of seven dedicated media
// control bits plus one pad bit.
var FixedReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageConsumer},
		hid.Usage{Usage: hid.UsageConsumerControl},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				hid.UsagePage{Page: hid.UsagePageConsumer},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.ReportSize{Bits: 1},
				hid.ReportCount{Count: 7},
				hid.Usage{Usage: hid.UsageScanNextTrack},
				hid.Usage{Usage: hid.UsageScanPreviousTrack},
				hid.Usage{Usage: hid.UsageStop},
				hid.Usage{Usage: hid.UsagePlayPause},
				hid.Usage{Usage: hid.UsageMute},
				hid.Usage{Usage: hid.UsageVolumeIncrement},
				hid.Usage{Usage: hid.UsageVolumeDecrement},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainConst},
			},
		},
	},
}.MustBytes()

// MultipleReport carries up to four simultaneously active consumer usage
// codes. Zero means no code in that slot.
type MultipleReport struct {
	Codes [4]uint16
}

// Bytes returns the 8-byte little-endian wire encoding.
func (r MultipleReport) Bytes() []byte {
	b := make([]byte, MultipleReportLen)
	for i, c := range r.Codes {
		binary.LittleEndian.PutUint16(b[i*2:], c)
	}
	return b
}

// FixedReport is the 1-byte fixed-function report. Combine the Fixed*
// bitmasks.
type FixedReport struct {
	Controls uint8
}

// Bytes returns the 1-byte wire encoding.
func (r FixedReport) Bytes() []byte {
	return []byte{r.Controls & 0x7F}
}

// ConfigureMultiple appends a four-code consumer control interface to b
// and returns b for chaining. Wrap the built interface with NewMultiple.
func ConfigureMultiple(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(MultipleReportDescriptor).
		Description("Consumer Control").
		InEndpoint(50).
		InputReport(0, MultipleReportLen).
		Done()
}

// ConfigureFixed appends a fixed-function consumer control interface to b.
// Wrap the built interface with NewFixed.
func ConfigureFixed(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(FixedReportDescriptor).
		Description("Consumer Control").
		InEndpoint(50).
		InputReport(0, FixedReportLen).
		Done()
}

// MultipleConsumer is the typed report layer over a four-code consumer
// control interface.
type MultipleConsumer struct {
	iface *hidclass.Interface
}

// NewMultiple wraps an interface built from ConfigureMultiple.
func NewMultiple(iface *hidclass.Interface) *MultipleConsumer {
	return &MultipleConsumer{iface: iface}
}

// Interface exposes the underlying HID interface.
func (c *MultipleConsumer) Interface() *hidclass.Interface { return c.iface }

// WriteReport queues a consumer report for the host. Hosts act on code
// transitions, so a press must be followed by a report with the code
// cleared.
func (c *MultipleConsumer) WriteReport(r MultipleReport) error {
	return c.iface.WriteReport(r.Bytes())
}

// FixedConsumer is the typed report layer over a fixed-function consumer
// control interface.
type FixedConsumer struct {
	iface *hidclass.Interface
}

// NewFixed wraps an interface built from ConfigureFixed.
func NewFixed(iface *hidclass.Interface) *FixedConsumer {
	return &FixedConsumer{iface: iface}
}

// Interface exposes the underlying HID interface.
func (c *FixedConsumer) Interface() *hidclass.Interface { return c.iface }

// WriteReport queues a fixed-function report for the host.
func (c *FixedConsumer) WriteReport(r FixedReport) error {
	return c.iface.WriteReport(r.Bytes())
}
