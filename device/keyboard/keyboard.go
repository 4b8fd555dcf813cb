// Package keyboard provides boot-protocol and N-key-rollover HID keyboard
// interfaces with host-controlled LED state.
package keyboard

import (
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/dlkj/usbd-human-interface-device/usb"
)

// Keyboards default to a 500ms idle so hosts repeating the last report
// see stuck keys released even if an interrupt transfer is lost.
const defaultIdleMs = 500

// ConfigureBoot appends a boot keyboard interface to b and returns b for
// chaining. Wrap the built interface with NewBoot.
func ConfigureBoot(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(BootReportDescriptor).
		Description("Keyboard").
		BootDevice(usb.InterfaceProtocolKeyboard).
		IdleDefaultMs(defaultIdleMs).
		InEndpoint(10).
		OutEndpoint(100).
		InputReport(0, BootReportLen).
		OutputReport(0, 1).
		Done()
}

// ConfigureNKRO appends a boot-compatible NKRO keyboard interface to b.
// Wrap the built interface with NewNKRO.
func ConfigureNKRO(b *hidclass.Builder) *hidclass.Builder {
	return b.AddInterface(NKROReportDescriptor).
		Description("NKRO Keyboard").
		BootDevice(usb.InterfaceProtocolKeyboard).
		IdleDefaultMs(defaultIdleMs).
		InEndpoint(10).
		OutEndpoint(100).
		InputReport(0, NKROReportLen).
		OutputReport(0, 1).
		Done()
}

// BootKeyboard is the typed report layer over a boot keyboard interface.
type BootKeyboard struct {
	iface *hidclass.Interface
}

// NewBoot wraps an interface built from ConfigureBoot.
func NewBoot(iface *hidclass.Interface) *BootKeyboard {
	return &BootKeyboard{iface: iface}
}

// Interface exposes the underlying HID interface.
func (k *BootKeyboard) Interface() *hidclass.Interface { return k.iface }

// WriteReport queues a keyboard report for the host, replacing any unsent
// one.
func (k *BootKeyboard) WriteReport(r BootReport) error {
	return k.iface.WriteReport(r.Bytes())
}

// ReadLEDs consumes the next LED report from the host. It returns
// hidclass.ErrWouldBlock when the host has not sent one.
func (k *BootKeyboard) ReadLEDs() (LEDState, error) {
	var buf [1]byte
	var st LEDState
	if _, err := k.iface.ReadReport(buf[:]); err != nil {
		return st, err
	}
	err := st.UnmarshalBinary(buf[:])
	return st, err
}

// NKROKeyboard is the typed report layer over an NKRO keyboard interface.
type NKROKeyboard struct {
	iface *hidclass.Interface
}

// NewNKRO wraps an interface built from ConfigureNKRO.
func NewNKRO(iface *hidclass.Interface) *NKROKeyboard {
	return &NKROKeyboard{iface: iface}
}

// Interface exposes the underlying HID interface.
func (k *NKROKeyboard) Interface() *hidclass.Interface { return k.iface }

// WriteReport queues an NKRO report for the host, replacing any unsent one.
func (k *NKROKeyboard) WriteReport(r NKROReport) error {
	return k.iface.WriteReport(r.Bytes())
}

// ReadLEDs consumes the next LED report from the host.
func (k *NKROKeyboard) ReadLEDs() (LEDState, error) {
	var buf [1]byte
	var st LEDState
	if _, err := k.iface.ReadReport(buf[:]); err != nil {
		return st, err
	}
	err := st.UnmarshalBinary(buf[:])
	return st, err
}
