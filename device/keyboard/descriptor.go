package keyboard

import "github.com/dlkj/usbd-human-interface-device/usb/hid"

// BootReportDescriptor describes the classic 8-byte boot keyboard report
// with a 1-byte LED output report (HID 1.11 appendix B.1).
var BootReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageKeyboard},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				// Modifier bitmap.
				hid.ReportSize{Bits: 1},
				hid.ReportCount{Count: 8},
				hid.UsagePage{Page: hid.UsagePageKeyboard},
				hid.UsageMinimum{Min: uint16(KeyLeftControl)},
				hid.UsageMaximum{Max: uint16(KeyRightGUI)},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				// Reserved byte.
				hid.ReportCount{Count: 1},
				hid.ReportSize{Bits: 8},
				hid.Input{Flags: hid.MainConst},

				// LED output bits plus padding.
				hid.ReportCount{Count: 5},
				hid.ReportSize{Bits: 1},
				hid.UsagePage{Page: hid.UsagePageLEDs},
				hid.UsageMinimum{Min: 0x01},
				hid.UsageMaximum{Max: 0x05},
				hid.Output{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.ReportCount{Count: 1},
				hid.ReportSize{Bits: 3},
				hid.Output{Flags: hid.MainConst},

				// Six-slot key array.
				hid.ReportCount{Count: 6},
				hid.ReportSize{Bits: 8},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 255},
				hid.UsagePage{Page: hid.UsagePageKeyboard},
				hid.UsageMinimum{Min: 0x00},
				// Two-byte encoding: hosts expect the usage extent to match
				// the two-byte logical maximum above.
				hid.AnyItem{Type: hid.ItemTypeLocal, Tag: 0x2, Data: hid.Data{0xFF, 0x00}},
				hid.Input{Flags: hid.MainData | hid.MainArray},
			},
		},
	},
}.MustBytes()

// NKROReportDescriptor describes a 25-byte boot-compatible N-key rollover
// report: the boot modifier byte and 6-slot array (read as reserved padding
// by report-protocol hosts) followed by a 136-bit key state bitmap.
var NKROReportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageKeyboard},
		hid.Collection{
			Kind: hid.CollectionApplication,
			Items: []hid.Item{
				// Modifier bitmap.
				hid.ReportSize{Bits: 1},
				hid.ReportCount{Count: 8},
				hid.UsagePage{Page: hid.UsagePageKeyboard},
				hid.UsageMinimum{Min: uint16(KeyLeftControl)},
				hid.UsageMaximum{Max: uint16(KeyRightGUI)},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				// Boot key array region, constant under report protocol.
				hid.ReportSize{Bits: 56},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainConst},

				// LED output bits plus padding.
				hid.ReportCount{Count: 5},
				hid.ReportSize{Bits: 1},
				hid.UsagePage{Page: hid.UsagePageLEDs},
				hid.UsageMinimum{Min: 0x01},
				hid.UsageMaximum{Max: 0x05},
				hid.Output{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.ReportCount{Count: 1},
				hid.ReportSize{Bits: 3},
				hid.Output{Flags: hid.MainConst | hid.MainVar},

				// Key state bitmap, one bit per usage 0x00-0x87.
				hid.ReportCount{Count: 136},
				hid.ReportSize{Bits: 1},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.UsagePage{Page: hid.UsagePageKeyboard},
				hid.UsageMinimum{Min: 0x00},
				hid.UsageMaximum{Max: 0x87},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
			},
		},
	},
}.MustBytes()
