package hid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlkj/usbd-human-interface-device/usb/hid"
)

func TestItemEncoding(t *testing.T) {
	type testCase struct {
		name string
		item hid.Item
		want []byte
	}
	cases := []testCase{
		{"usage page one byte", hid.UsagePage{Page: hid.UsagePageKeyboard}, []byte{0x05, 0x07}},
		{"usage page two bytes", hid.UsagePage{Page: 0xFF00}, []byte{0x06, 0x00, 0xFF}},
		{"usage", hid.Usage{Usage: hid.UsageKeyboard}, []byte{0x09, 0x06}},
		{"usage two bytes", hid.Usage{Usage: hid.UsageACPan}, []byte{0x0A, 0x38, 0x02}},
		{"logical minimum zero", hid.LogicalMinimum{Min: 0}, []byte{0x15, 0x00}},
		{"logical minimum negative", hid.LogicalMinimum{Min: -127}, []byte{0x15, 0x81}},
		{"logical minimum widened", hid.LogicalMinimum{Min: -129}, []byte{0x16, 0x7F, 0xFF}},
		{"logical maximum one byte", hid.LogicalMaximum{Max: 127}, []byte{0x25, 0x7F}},
		// 255 does not fit a signed byte so the encoding widens to two.
		{"logical maximum widened", hid.LogicalMaximum{Max: 255}, []byte{0x26, 0xFF, 0x00}},
		{"report id", hid.ReportID{ID: 5}, []byte{0x85, 0x05}},
		{"report size", hid.ReportSize{Bits: 8}, []byte{0x75, 0x08}},
		{"report count two bytes", hid.ReportCount{Count: 256}, []byte{0x96, 0x00, 0x01}},
		{"input data var abs", hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs}, []byte{0x81, 0x02}},
		{"output const", hid.Output{Flags: hid.MainConst}, []byte{0x91, 0x01}},
		{"feature", hid.Feature{Flags: hid.MainData | hid.MainVar | hid.MainAbs}, []byte{0xB1, 0x02}},
		{"forced two byte local", hid.AnyItem{Type: hid.ItemTypeLocal, Tag: 0x2, Data: hid.Data{0xFF, 0x00}}, []byte{0x2A, 0xFF, 0x00}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := hid.Report{Items: []hid.Item{tc.item}}.Bytes()
			require.NoError(t, err)
			assert.Equal(t, hid.Data(tc.want), got)
		})
	}
}

func TestCollectionNesting(t *testing.T) {
	got, err := hid.Report{Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageGenericDesktop},
		hid.Usage{Usage: hid.UsageMouse},
		hid.Collection{Kind: hid.CollectionApplication, Items: []hid.Item{
			hid.Usage{Usage: hid.UsagePointer},
			hid.Collection{Kind: hid.CollectionPhysical, Items: []hid.Item{
				hid.Usage{Usage: hid.UsageX},
			}},
		}},
	}}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, hid.Data{
		0x05, 0x01,
		0x09, 0x02,
		0xA1, 0x01,
		0x09, 0x01,
		0xA1, 0x00,
		0x09, 0x30,
		0xC0,
		0xC0,
	}, got)
}

func TestReportRejectsMalformedItems(t *testing.T) {
	_, err := hid.Report{Items: []hid.Item{nil}}.Bytes()
	assert.Error(t, err)

	_, err = hid.Report{Items: []hid.Item{
		hid.AnyItem{Type: hid.ItemTypeLocal, Tag: 0x2, Data: hid.Data{1, 2, 3}},
	}}.Bytes()
	assert.Error(t, err)
}

func TestLongItem(t *testing.T) {
	got, err := hid.Report{Items: []hid.Item{
		hid.LongItem{Tag: 0x42, Data: hid.Data{0xAA, 0xBB}},
	}}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, hid.Data{0xFE, 0x02, 0x42, 0xAA, 0xBB}, got)
}
