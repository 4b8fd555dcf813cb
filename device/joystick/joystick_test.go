package joystick_test

import (
	"testing"

	"github.com/dlkj/usbd-human-interface-device/device/joystick"
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var descriptorBytes = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x04, // Usage (Joystick)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x02, //     Report Count (2)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0xC0, //   End Collection
	0x05, 0x09, //   Usage Page (Button)
	0x19, 0x01, //   Usage Minimum (1)
	0x29, 0x08, //   Usage Maximum (8)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0xC0, // End Collection
}

func TestReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, descriptorBytes, []byte(joystick.ReportDescriptor))
}

func TestReportEncoding(t *testing.T) {
	r := joystick.Report{X: -64, Y: 64, Buttons: 0x81}
	assert.Equal(t, []byte{0xC0, 0x40, 0x81}, r.Bytes())
}

func TestJoystickTransmission(t *testing.T) {
	class, err := joystick.Configure(hidclass.NewBuilder(0x1209, 0x0003)).Build()
	require.NoError(t, err)

	j := joystick.New(class.Interfaces()[0])
	require.NoError(t, j.WriteReport(joystick.Report{X: 1, Y: 2, Buttons: 4}))

	payload := class.HandleTransfer(1, 1, nil)
	assert.Equal(t, []byte{0x01, 0x02, 0x04}, payload)
}
