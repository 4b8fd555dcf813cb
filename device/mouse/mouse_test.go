package mouse_test

import (
	"testing"

	"github.com/dlkj/usbd-human-interface-device/device/mouse"
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bootDescriptorBytes = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x95, 0x03, //     Report Count (3)
	0x75, 0x01, //     Report Size (1)
	0x05, 0x09, //     Usage Page (Buttons)
	0x19, 0x01, //     Usage Minimum (1)
	0x29, 0x03, //     Usage Maximum (3)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x95, 0x01, //     Report Count (1)
	0x75, 0x05, //     Report Size (5)
	0x81, 0x01, //     Input (Constant)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x02, //     Report Count (2)
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0, //   End Collection
	0xC0, // End Collection
}

var wheelDescriptorBytes = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x95, 0x08, //     Report Count (8)
	0x75, 0x01, //     Report Size (1)
	0x05, 0x09, //     Usage Page (Buttons)
	0x19, 0x01, //     Usage Minimum (1)
	0x29, 0x08, //     Usage Maximum (8)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x02, //     Report Count (2)
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x09, 0x38, //     Usage (Wheel)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0x05, 0x0C, //     Usage Page (Consumer)
	0x0A, 0x38, 0x02, // Usage (AC Pan)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0, //   End Collection
	0xC0, // End Collection
}

func TestBootReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, bootDescriptorBytes, []byte(mouse.BootReportDescriptor))
}

func TestWheelReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, wheelDescriptorBytes, []byte(mouse.WheelReportDescriptor))
}

func TestReportEncoding(t *testing.T) {
	boot := mouse.BootReport{Buttons: mouse.ButtonLeft, X: -5, Y: 127}
	assert.Equal(t, []byte{0x01, 0xFB, 0x7F}, boot.Bytes())

	wheel := mouse.WheelReport{Buttons: mouse.ButtonRight, X: 1, Y: -1, Wheel: -2, Pan: 3}
	assert.Equal(t, []byte{0x02, 0x01, 0xFF, 0xFE, 0x03}, wheel.Bytes())
}

func TestBootMouseTransmission(t *testing.T) {
	class, err := mouse.ConfigureBoot(hidclass.NewBuilder(0x1209, 0x0002)).Build()
	require.NoError(t, err)

	m := mouse.NewBoot(class.Interfaces()[0])
	require.NoError(t, m.WriteReport(mouse.BootReport{X: 10, Y: -10}))

	payload := class.HandleTransfer(1, 1, nil)
	assert.Equal(t, []byte{0x00, 0x0A, 0xF6}, payload)
	assert.Nil(t, class.HandleTransfer(1, 1, nil))
}
