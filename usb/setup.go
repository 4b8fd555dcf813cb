package usb

import "encoding/binary"

// Standard USB request codes (USB 2.0 spec table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestSetDescriptor    = 0x07
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
)

// bmRequestType field masks (USB 2.0 spec table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F
)

// bmRequestType direction values.
const (
	RequestDirectionHostToDevice = 0x00
	RequestDirectionDeviceToHost = 0x80
)

// bmRequestType type values.
const (
	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40
)

// bmRequestType recipient values.
const (
	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
)

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// SetupPacket represents an 8-byte USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // bmRequestType: direction, type, recipient
	Request     uint8  // bRequest: specific request code
	Value       uint16 // wValue: request-specific parameter
	Index       uint16 // wIndex: request-specific index
	Length      uint16 // wLength: number of bytes to transfer
}

// ParseSetupPacket decodes an 8-byte SETUP packet. It returns false if data
// is too short.
func ParseSetupPacket(data []byte) (SetupPacket, bool) {
	if len(data) < SetupPacketSize {
		return SetupPacket{}, false
	}
	return SetupPacket{
		RequestType: data[0],
		Request:     data[1],
		Value:       binary.LittleEndian.Uint16(data[2:4]),
		Index:       binary.LittleEndian.Uint16(data[4:6]),
		Length:      binary.LittleEndian.Uint16(data[6:8]),
	}, true
}

// Bytes returns the 8-byte wire encoding of the setup packet.
func (s SetupPacket) Bytes() []byte {
	buf := make([]byte, SetupPacketSize)
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return buf
}

// IsDeviceToHost reports whether this is a device-to-host (IN) transfer.
func (s SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// Type returns the request type bits (Standard, Class, or Vendor).
func (s SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeTypeMask
}

// Recipient returns the request recipient bits (Device, Interface, Endpoint).
func (s SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// DescriptorType returns the descriptor type from wValue for GET_DESCRIPTOR.
func (s SetupPacket) DescriptorType() uint8 {
	return uint8(s.Value >> 8)
}

// DescriptorIndex returns the descriptor index from wValue for GET_DESCRIPTOR.
func (s SetupPacket) DescriptorIndex() uint8 {
	return uint8(s.Value & 0xFF)
}
