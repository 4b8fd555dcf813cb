package consumer_test

import (
	"testing"

	"github.com/dlkj/usbd-human-interface-device/device/consumer"
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/dlkj/usbd-human-interface-device/usb/hid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var multipleDescriptorBytes = []byte{
	0x05, 0x0C, // Usage Page (Consumer)
	0x09, 0x01, // Usage (Consumer Control)
	0xA1, 0x01, // Collection (Application)
	0x75, 0x10, //   Report Size (16)
	0x95, 0x04, //   Report Count (4)
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0x9C, 0x02, // Logical Maximum (0x029C)
	0x19, 0x00, //   Usage Minimum (0)
	0x2A, 0x9C, 0x02, // Usage Maximum (0x029C)
	0x81, 0x00, //   Input (Data, Array)
	0xC0, // End Collection
}

var fixedDescriptorBytes = []byte{
	0x05, 0x0C, // Usage Page (Consumer)
	0x09, 0x01, // Usage (Consumer Control)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x0C, //   Usage Page (Consumer)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x07, //   Report Count (7)
	0x09, 0xB5, //   Usage (Scan Next Track)
	0x09, 0xB6, //   Usage (Scan Previous Track)
	0x09, 0xB7, //   Usage (Stop)
	0x09, 0xCD, //   Usage (Play/Pause)
	0x09, 0xE2, //   Usage (Mute)
	0x09, 0xE9, //   Usage (Volume Increment)
	0x09, 0xEA, //   Usage (Volume Decrement)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x01, //   Input (Constant)
	0xC0, // End Collection
}

func TestMultipleReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, multipleDescriptorBytes, []byte(consumer.MultipleReportDescriptor))
}

func TestFixedReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, fixedDescriptorBytes, []byte(consumer.FixedReportDescriptor))
}

func TestMultipleReportEncoding(t *testing.T) {
	r := consumer.MultipleReport{
		Codes: [4]uint16{hid.UsagePlayPause, hid.UsageACPan, 0, 0},
	}
	assert.Equal(t, []byte{0xCD, 0x00, 0x38, 0x02, 0x00, 0x00, 0x00, 0x00}, r.Bytes())
}

func TestFixedReportEncoding(t *testing.T) {
	r := consumer.FixedReport{Controls: consumer.FixedMute | consumer.FixedVolumeUp}
	assert.Equal(t, []byte{0x30}, r.Bytes())

	// The pad bit never leaves the device.
	r = consumer.FixedReport{Controls: 0xFF}
	assert.Equal(t, []byte{0x7F}, r.Bytes())
}

func TestConsumerTransmission(t *testing.T) {
	class, err := consumer.ConfigureMultiple(hidclass.NewBuilder(0x1209, 0x0004)).Build()
	require.NoError(t, err)

	c := consumer.NewMultiple(class.Interfaces()[0])
	require.NoError(t, c.WriteReport(consumer.MultipleReport{Codes: [4]uint16{hid.UsageMute}}))

	payload := class.HandleTransfer(1, 1, nil)
	assert.Equal(t, []byte{0xE2, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, payload)
}
