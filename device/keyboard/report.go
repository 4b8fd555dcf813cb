package keyboard

import "io"

// LED bitmasks in the 1-byte output report.
const (
	LEDNumLock    = 0x01
	LEDCapsLock   = 0x02
	LEDScrollLock = 0x04
	LEDCompose    = 0x08
	LEDKana       = 0x10
)

// LEDState is the host-controlled keyboard LED state.
type LEDState struct {
	NumLock    bool
	CapsLock   bool
	ScrollLock bool
	Compose    bool
	Kana       bool
}

// UnmarshalBinary decodes the 1-byte LED output report.
func (st *LEDState) UnmarshalBinary(data []byte) error {
	if len(data) < 1 {
		return io.ErrUnexpectedEOF
	}
	b := data[0]
	st.NumLock = b&LEDNumLock != 0
	st.CapsLock = b&LEDCapsLock != 0
	st.ScrollLock = b&LEDScrollLock != 0
	st.Compose = b&LEDCompose != 0
	st.Kana = b&LEDKana != 0
	return nil
}

// BootReportLen is the size of the 8-byte boot keyboard input report.
const BootReportLen = 8

// BootReport is the fixed boot-protocol keyboard input report: one
// modifier byte, one reserved byte and six key array slots.
type BootReport struct {
	Modifiers uint8
	Keys      [6]Keycode
}

// NewBootReport builds a report from the set of currently pressed keys.
// Modifier keys set modifier bits; other keys fill the six array slots. If
// more than six non-modifier keys are pressed, every slot reports
// ErrorRollOver, the phantom state hosts recognize (HID 1.11 appendix B.1).
func NewBootReport(keys ...Keycode) BootReport {
	var r BootReport
	n := 0
	rollover := false
	for _, k := range keys {
		switch {
		case IsModifier(k):
			r.Modifiers |= ModifierBit(k)
		case k <= KeyErrorUndefine:
			// Reserved codes never occupy a slot.
		case n < len(r.Keys):
			r.Keys[n] = k
			n++
		default:
			rollover = true
		}
	}
	if rollover {
		for i := range r.Keys {
			r.Keys[i] = KeyErrorRollOver
		}
	}
	return r
}

// Bytes returns the 8-byte wire encoding.
func (r BootReport) Bytes() []byte {
	b := make([]byte, BootReportLen)
	b[0] = r.Modifiers
	for i, k := range r.Keys {
		b[2+i] = uint8(k)
	}
	return b
}

// NKROReportLen is the size of the 25-byte NKRO input report.
const NKROReportLen = 25

// nkroBitmapKeys is the highest usage code the NKRO bitmap covers.
const nkroBitmapKeys = 136

// NKROReport is the boot-compatible N-key rollover input report: the boot
// modifier byte and key array followed by a 17-byte bitmap covering usage
// codes 0x00-0x87. Boot-protocol hosts read the first 8 bytes; report
// protocol hosts read the bitmap.
type NKROReport struct {
	Modifiers uint8
	BootKeys  [6]Keycode
	Bitmap    [17]uint8
}

// NewNKROReport builds a report from the set of currently pressed keys.
// The boot region degrades to phantom rollover beyond six keys; the bitmap
// has no such limit.
func NewNKROReport(keys ...Keycode) NKROReport {
	var r NKROReport
	n := 0
	rollover := false
	for _, k := range keys {
		switch {
		case IsModifier(k):
			r.Modifiers |= ModifierBit(k)
			continue
		case k <= KeyErrorUndefine:
			continue
		}
		if uint16(k) < nkroBitmapKeys {
			r.Bitmap[k/8] |= 1 << (k % 8)
		}
		if n < len(r.BootKeys) {
			r.BootKeys[n] = k
			n++
		} else {
			rollover = true
		}
	}
	if rollover {
		for i := range r.BootKeys {
			r.BootKeys[i] = KeyErrorRollOver
		}
	}
	return r
}

// Bytes returns the 25-byte wire encoding.
func (r NKROReport) Bytes() []byte {
	b := make([]byte, NKROReportLen)
	b[0] = r.Modifiers
	for i, k := range r.BootKeys {
		b[2+i] = uint8(k)
	}
	copy(b[8:], r.Bitmap[:])
	return b
}
