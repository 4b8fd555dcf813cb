package keyboard

// Keycode is a usage code from the HID Keyboard/Keypad usage page (0x07).
type Keycode uint8

// Reserved usage codes reported in key array positions.
const (
	KeyNone          Keycode = 0x00
	KeyErrorRollOver Keycode = 0x01
	KeyPOSTFail      Keycode = 0x02
	KeyErrorUndefine Keycode = 0x03
)

// Letters and digits.
const (
	KeyA Keycode = 0x04
	KeyB Keycode = 0x05
	KeyC Keycode = 0x06
	KeyD Keycode = 0x07
	KeyE Keycode = 0x08
	KeyF Keycode = 0x09
	KeyG Keycode = 0x0A
	KeyH Keycode = 0x0B
	KeyI Keycode = 0x0C
	KeyJ Keycode = 0x0D
	KeyK Keycode = 0x0E
	KeyL Keycode = 0x0F
	KeyM Keycode = 0x10
	KeyN Keycode = 0x11
	KeyO Keycode = 0x12
	KeyP Keycode = 0x13
	KeyQ Keycode = 0x14
	KeyR Keycode = 0x15
	KeyS Keycode = 0x16
	KeyT Keycode = 0x17
	KeyU Keycode = 0x18
	KeyV Keycode = 0x19
	KeyW Keycode = 0x1A
	KeyX Keycode = 0x1B
	KeyY Keycode = 0x1C
	KeyZ Keycode = 0x1D

	Key1 Keycode = 0x1E
	Key2 Keycode = 0x1F
	Key3 Keycode = 0x20
	Key4 Keycode = 0x21
	Key5 Keycode = 0x22
	Key6 Keycode = 0x23
	Key7 Keycode = 0x24
	Key8 Keycode = 0x25
	Key9 Keycode = 0x26
	Key0 Keycode = 0x27
)

// Punctuation and control.
const (
	KeyEnter      Keycode = 0x28
	KeyEscape     Keycode = 0x29
	KeyBackspace  Keycode = 0x2A
	KeyTab        Keycode = 0x2B
	KeySpace      Keycode = 0x2C
	KeyMinus      Keycode = 0x2D
	KeyEqual      Keycode = 0x2E
	KeyLeftBrace  Keycode = 0x2F
	KeyRightBrace Keycode = 0x30
	KeyBackslash  Keycode = 0x31
	KeyNonUSHash  Keycode = 0x32
	KeySemicolon  Keycode = 0x33
	KeyApostrophe Keycode = 0x34
	KeyGrave      Keycode = 0x35
	KeyComma      Keycode = 0x36
	KeyPeriod     Keycode = 0x37
	KeySlash      Keycode = 0x38
	KeyCapsLock   Keycode = 0x39
)

// Function keys.
const (
	KeyF1  Keycode = 0x3A
	KeyF2  Keycode = 0x3B
	KeyF3  Keycode = 0x3C
	KeyF4  Keycode = 0x3D
	KeyF5  Keycode = 0x3E
	KeyF6  Keycode = 0x3F
	KeyF7  Keycode = 0x40
	KeyF8  Keycode = 0x41
	KeyF9  Keycode = 0x42
	KeyF10 Keycode = 0x43
	KeyF11 Keycode = 0x44
	KeyF12 Keycode = 0x45
)

// Navigation cluster.
const (
	KeyPrintScreen Keycode = 0x46
	KeyScrollLock  Keycode = 0x47
	KeyPause       Keycode = 0x48
	KeyInsert      Keycode = 0x49
	KeyHome        Keycode = 0x4A
	KeyPageUp      Keycode = 0x4B
	KeyDelete      Keycode = 0x4C
	KeyEnd         Keycode = 0x4D
	KeyPageDown    Keycode = 0x4E
	KeyRight       Keycode = 0x4F
	KeyLeft        Keycode = 0x50
	KeyDown        Keycode = 0x51
	KeyUp          Keycode = 0x52
)

// Keypad.
const (
	KeyNumLock    Keycode = 0x53
	KeyKpSlash    Keycode = 0x54
	KeyKpAsterisk Keycode = 0x55
	KeyKpMinus    Keycode = 0x56
	KeyKpPlus     Keycode = 0x57
	KeyKpEnter    Keycode = 0x58
	KeyKp1        Keycode = 0x59
	KeyKp2        Keycode = 0x5A
	KeyKp3        Keycode = 0x5B
	KeyKp4        Keycode = 0x5C
	KeyKp5        Keycode = 0x5D
	KeyKp6        Keycode = 0x5E
	KeyKp7        Keycode = 0x5F
	KeyKp8        Keycode = 0x60
	KeyKp9        Keycode = 0x61
	KeyKp0        Keycode = 0x62
	KeyKpDot      Keycode = 0x63

	KeyNonUSBackslash Keycode = 0x64
	KeyApplication    Keycode = 0x65
	KeyPower          Keycode = 0x66
	KeyKpEqual        Keycode = 0x67
)

// Modifier keys. These occupy the modifier bitmap in reports rather than
// key array slots.
const (
	KeyLeftControl  Keycode = 0xE0
	KeyLeftShift    Keycode = 0xE1
	KeyLeftAlt      Keycode = 0xE2
	KeyLeftGUI      Keycode = 0xE3
	KeyRightControl Keycode = 0xE4
	KeyRightShift   Keycode = 0xE5
	KeyRightAlt     Keycode = 0xE6
	KeyRightGUI     Keycode = 0xE7
)

// Modifier bit positions in the report's modifier byte.
const (
	ModLeftControl  = 0x01
	ModLeftShift    = 0x02
	ModLeftAlt      = 0x04
	ModLeftGUI      = 0x08
	ModRightControl = 0x10
	ModRightShift   = 0x20
	ModRightAlt     = 0x40
	ModRightGUI     = 0x80
)

// IsModifier reports whether k is one of the eight modifier keys.
func IsModifier(k Keycode) bool {
	return k >= KeyLeftControl && k <= KeyRightGUI
}

// ModifierBit returns the modifier byte bit for a modifier keycode, or 0
// for ordinary keys.
func ModifierBit(k Keycode) uint8 {
	if !IsModifier(k) {
		return 0
	}
	return 1 << (k - KeyLeftControl)
}

// KeycodeForChar maps a printable ASCII character (plus tab and newline) to
// its US-layout usage code. shift reports whether the character needs the
// Shift modifier; ok is false for characters with no key.
func KeycodeForChar(c byte) (key Keycode, shift bool, ok bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return KeyA + Keycode(c-'a'), false, true
	case c >= 'A' && c <= 'Z':
		return KeyA + Keycode(c-'A'), true, true
	case c >= '1' && c <= '9':
		return Key1 + Keycode(c-'1'), false, true
	case c == '0':
		return Key0, false, true
	}
	type mapping struct {
		key   Keycode
		shift bool
	}
	m, ok := map[byte]mapping{
		' ':  {KeySpace, false},
		'\n': {KeyEnter, false},
		'\r': {KeyEnter, false},
		'\t': {KeyTab, false},
		'-':  {KeyMinus, false},
		'=':  {KeyEqual, false},
		'[':  {KeyLeftBrace, false},
		']':  {KeyRightBrace, false},
		'\\': {KeyBackslash, false},
		';':  {KeySemicolon, false},
		'\'': {KeyApostrophe, false},
		'`':  {KeyGrave, false},
		',':  {KeyComma, false},
		'.':  {KeyPeriod, false},
		'/':  {KeySlash, false},
		'!':  {Key1, true},
		'@':  {Key2, true},
		'#':  {Key3, true},
		'$':  {Key4, true},
		'%':  {Key5, true},
		'^':  {Key6, true},
		'&':  {Key7, true},
		'*':  {Key8, true},
		'(':  {Key9, true},
		')':  {Key0, true},
		'_':  {KeyMinus, true},
		'+':  {KeyEqual, true},
		'{':  {KeyLeftBrace, true},
		'}':  {KeyRightBrace, true},
		'|':  {KeyBackslash, true},
		':':  {KeySemicolon, true},
		'"':  {KeyApostrophe, true},
		'~':  {KeyGrave, true},
		'<':  {KeyComma, true},
		'>':  {KeyPeriod, true},
		'?':  {KeySlash, true},
	}[c]
	return m.key, m.shift, ok
}
