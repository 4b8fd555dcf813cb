package keyboard_test

import (
	"testing"

	"github.com/dlkj/usbd-human-interface-device/device/keyboard"
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Descriptor byte streams as they appear in HID 1.11 appendix B and in
// widely deployed keyboard firmware. The structured descriptors must
// encode to these exact bytes.
var bootDescriptorBytes = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xA1, 0x01, // Collection (Application)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0xE0, //   Usage Minimum (224)
	0x29, 0xE7, //   Usage Maximum (231)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x08, //   Report Size (8)
	0x81, 0x01, //   Input (Constant)
	0x95, 0x05, //   Report Count (5)
	0x75, 0x01, //   Report Size (1)
	0x05, 0x08, //   Usage Page (LEDs)
	0x19, 0x01, //   Usage Minimum (1)
	0x29, 0x05, //   Usage Maximum (5)
	0x91, 0x02, //   Output (Data, Variable, Absolute)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x03, //   Report Size (3)
	0x91, 0x01, //   Output (Constant)
	0x95, 0x06, //   Report Count (6)
	0x75, 0x08, //   Report Size (8)
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xFF, 0x00, // Logical Maximum (255)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0x00, //   Usage Minimum (0)
	0x2A, 0xFF, 0x00, // Usage Maximum (255)
	0x81, 0x00, //   Input (Data, Array)
	0xC0, // End Collection
}

var nkroDescriptorBytes = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xA1, 0x01, // Collection (Application)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0xE0, //   Usage Minimum (224)
	0x29, 0xE7, //   Usage Maximum (231)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x75, 0x38, //   Report Size (56)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x01, //   Input (Constant)
	0x95, 0x05, //   Report Count (5)
	0x75, 0x01, //   Report Size (1)
	0x05, 0x08, //   Usage Page (LEDs)
	0x19, 0x01, //   Usage Minimum (1)
	0x29, 0x05, //   Usage Maximum (5)
	0x91, 0x02, //   Output (Data, Variable, Absolute)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x03, //   Report Size (3)
	0x91, 0x03, //   Output (Constant, Variable)
	0x95, 0x88, //   Report Count (136)
	0x75, 0x01, //   Report Size (1)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0x00, //   Usage Minimum (0)
	0x29, 0x87, //   Usage Maximum (135)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0xC0, // End Collection
}

func TestBootReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, bootDescriptorBytes, []byte(keyboard.BootReportDescriptor))
}

func TestNKROReportDescriptorBytes(t *testing.T) {
	assert.Equal(t, nkroDescriptorBytes, []byte(keyboard.NKROReportDescriptor))
}

func TestBootReport(t *testing.T) {
	type testCase struct {
		name     string
		keys     []keyboard.Keycode
		expected []byte
	}

	cases := []testCase{
		{
			name:     "no keys",
			keys:     nil,
			expected: []byte{0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:     "letters",
			keys:     []keyboard.Keycode{keyboard.KeyA, keyboard.KeyB},
			expected: []byte{0, 0, 0x04, 0x05, 0, 0, 0, 0},
		},
		{
			name:     "modifiers set bits not slots",
			keys:     []keyboard.Keycode{keyboard.KeyLeftShift, keyboard.KeyRightGUI, keyboard.KeyZ},
			expected: []byte{0x82, 0, 0x1D, 0, 0, 0, 0, 0},
		},
		{
			name: "seven keys phantom",
			keys: []keyboard.Keycode{
				keyboard.KeyA, keyboard.KeyB, keyboard.KeyC, keyboard.KeyD,
				keyboard.KeyE, keyboard.KeyF, keyboard.KeyG,
			},
			expected: []byte{0, 0, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01},
		},
		{
			name:     "reserved codes skipped",
			keys:     []keyboard.Keycode{keyboard.KeyErrorRollOver, keyboard.KeyA},
			expected: []byte{0, 0, 0x04, 0, 0, 0, 0, 0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, keyboard.NewBootReport(tc.keys...).Bytes())
		})
	}
}

func TestNKROReport(t *testing.T) {
	r := keyboard.NewNKROReport(keyboard.KeyA, keyboard.KeyLeftControl)
	b := r.Bytes()
	require.Len(t, b, keyboard.NKROReportLen)
	assert.Equal(t, uint8(keyboard.ModLeftControl), b[0])
	assert.Equal(t, uint8(keyboard.KeyA), b[2], "boot region carries the key")
	assert.Equal(t, uint8(0x10), b[8], "bitmap bit for usage 0x04")
}

func TestNKROReportBeyondSixKeys(t *testing.T) {
	keys := []keyboard.Keycode{
		keyboard.KeyA, keyboard.KeyB, keyboard.KeyC, keyboard.KeyD,
		keyboard.KeyE, keyboard.KeyF, keyboard.KeyG, keyboard.KeyH,
	}
	b := keyboard.NewNKROReport(keys...).Bytes()

	for i := 2; i < 8; i++ {
		assert.Equal(t, uint8(keyboard.KeyErrorRollOver), b[i], "boot region degrades to phantom state")
	}
	for _, k := range keys {
		byteIdx := 8 + int(k)/8
		assert.NotZero(t, b[byteIdx]&(1<<(k%8)), "bitmap still reports key %#x", k)
	}
}

func TestKeyboardLEDRoundTrip(t *testing.T) {
	class, err := keyboard.ConfigureBoot(hidclass.NewBuilder(0x1209, 0x0001)).Build()
	require.NoError(t, err)

	kb := keyboard.NewBoot(class.Interfaces()[0])

	_, err = kb.ReadLEDs()
	assert.ErrorIs(t, err, hidclass.ErrWouldBlock)

	// Host delivers caps lock via the interrupt OUT endpoint.
	class.HandleTransfer(1, 0, []byte{keyboard.LEDCapsLock})
	st, err := kb.ReadLEDs()
	require.NoError(t, err)
	assert.True(t, st.CapsLock)
	assert.False(t, st.NumLock)
}
