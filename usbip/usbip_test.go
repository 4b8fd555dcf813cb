package usbip_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlkj/usbd-human-interface-device/usbip"
)

func TestMgmtHeaderWire(t *testing.T) {
	var buf bytes.Buffer
	h := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepImport, Status: 0}
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, []byte{0x01, 0x11, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00}, buf.Bytes())
}

func TestRetSubmitWireSize(t *testing.T) {
	var buf bytes.Buffer
	r := usbip.RetSubmit{
		Basic:        usbip.HeaderBasic{Command: usbip.RetSubmitCode, Seqnum: 7},
		Status:       usbip.StatusStall,
		ActualLength: 0,
	}
	require.NoError(t, r.Write(&buf))
	require.Len(t, buf.Bytes(), 48)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x03}, buf.Bytes()[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x07}, buf.Bytes()[4:8])
	// -EPIPE in network byte order.
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xE0}, buf.Bytes()[20:24])
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cmd := usbip.CmdSubmit{
		Basic: usbip.HeaderBasic{Command: usbip.CmdSubmitCode, Seqnum: 3, Devid: 2, Dir: usbip.DirIn, Ep: 1},
		SubmitFields: usbip.SubmitFields{
			TransferBufferLen: 64,
			Setup:             [8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00},
		},
	}
	require.NoError(t, cmd.Write(&buf))
	require.Len(t, buf.Bytes(), 48)

	basic, err := usbip.ReadHeaderBasic(&buf)
	require.NoError(t, err)
	assert.Equal(t, cmd.Basic, basic)

	fields, err := usbip.ReadSubmitFields(&buf)
	require.NoError(t, err)
	assert.Equal(t, cmd.SubmitFields, fields)
}

func TestExportedDeviceWire(t *testing.T) {
	var meta usbip.ExportMeta
	copy(meta.Path[:], "/sys/devices/usb1/1-1")
	copy(meta.USBBusID[:], "1-1")
	meta.BusID = 1
	meta.DevID = 1

	dev := usbip.ExportedDevice{
		DeviceSummary: usbip.DeviceSummary{
			ExportMeta:          meta,
			Speed:               2,
			IDVendor:            0x1209,
			IDProduct:           0x0001,
			BNumConfigurations:  1,
			BConfigurationValue: 1,
			BNumInterfaces:      2,
		},
		Interfaces: []usbip.InterfaceDesc{
			{Class: 3, SubClass: 1, Protocol: 1},
			{Class: 3, SubClass: 0, Protocol: 0},
		},
	}

	var devlist bytes.Buffer
	require.NoError(t, dev.WriteDevlist(&devlist))
	assert.Len(t, devlist.Bytes(), 312+2*4)

	var imp bytes.Buffer
	require.NoError(t, dev.WriteImport(&imp))
	assert.Len(t, imp.Bytes(), 312)

	// Fixed-size fields land at their kernel-defined offsets.
	raw := imp.Bytes()
	assert.Equal(t, []byte{0x12, 0x09}, raw[300:302])
	assert.Equal(t, uint8(2), raw[311])

	assert.Equal(t, "1-1", meta.BusDeviceID())
}
