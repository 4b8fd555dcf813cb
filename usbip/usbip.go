// Package usbip implements the USB/IP wire protocol as spoken by the
// Linux kernel's vhci-hcd driver: the management handshake (device list
// and import) and the URB submit/unlink stream. All multi-byte fields are
// network byte order.
package usbip

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Wire constants.
const (
	Version = 0x0111

	// Management commands.
	OpReqDevlist = 0x8005
	OpRepDevlist = 0x0005
	OpReqImport  = 0x8003
	OpRepImport  = 0x0003

	// URB transfer commands.
	CmdSubmitCode = 0x00000001
	CmdUnlinkCode = 0x00000002
	RetSubmitCode = 0x00000003
	RetUnlinkCode = 0x00000004

	// Transfer directions in usbip_header_basic.direction.
	DirOut = 0x00000000
	DirIn  = 0x00000001
)

// URB status codes reported in RET_SUBMIT / RET_UNLINK, following the
// kernel's negative-errno convention.
const (
	StatusOK        = 0
	StatusStall     = -32  // -EPIPE: endpoint halted, request rejected
	StatusConnReset = -104 // -ECONNRESET: URB unlinked
)

// BusIDSize is the fixed size of the busid field in OP_REQ_IMPORT.
const BusIDSize = 32

// MgmtHeader is the 8-byte header opening every management exchange.
type MgmtHeader struct {
	Version uint16
	Command uint16
	Status  uint32
}

func (h MgmtHeader) Write(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, h)
}

// DevListReplyHeader follows the MgmtHeader in OP_REP_DEVLIST.
type DevListReplyHeader struct {
	NDevices uint32
}

func (d DevListReplyHeader) Write(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, d)
}

// ExportMeta carries the bus identity an exported device presents to
// importing hosts. The fixed-size strings are NUL padded on the wire.
type ExportMeta struct {
	Path     [256]byte
	USBBusID [32]byte
	BusID    uint32
	DevID    uint32
}

// BusDeviceID returns the NUL-trimmed busid string (for example "1-1").
func (m *ExportMeta) BusDeviceID() string {
	if i := bytes.IndexByte(m.USBBusID[:], 0); i >= 0 {
		return string(m.USBBusID[:i])
	}
	return string(m.USBBusID[:])
}

// DeviceSummary is the fixed-layout device description shared by the
// devlist and import replies.
type DeviceSummary struct {
	ExportMeta
	Speed uint32

	IDVendor            uint16
	IDProduct           uint16
	BcdDevice           uint16
	BDeviceClass        uint8
	BDeviceSubClass     uint8
	BDeviceProtocol     uint8
	BConfigurationValue uint8
	BNumConfigurations  uint8
	BNumInterfaces      uint8
}

// InterfaceDesc is the per-interface triplet appended to devlist entries.
type InterfaceDesc struct {
	Class    uint8
	SubClass uint8
	Protocol uint8
}

// ExportedDevice describes one exported device in management replies.
type ExportedDevice struct {
	DeviceSummary
	Interfaces []InterfaceDesc
}

// WriteDevlist writes the OP_REP_DEVLIST entry, which includes the
// interface triplets.
func (d *ExportedDevice) WriteDevlist(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, d.DeviceSummary); err != nil {
		return err
	}
	for _, iface := range d.Interfaces {
		if _, err := w.Write([]byte{iface.Class, iface.SubClass, iface.Protocol, 0}); err != nil {
			return err
		}
	}
	return nil
}

// WriteImport writes the OP_REP_IMPORT entry, which ends at
// bNumInterfaces.
func (d *ExportedDevice) WriteImport(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, d.DeviceSummary)
}

// HeaderBasic opens every URB command and reply.
type HeaderBasic struct {
	Command uint32
	Seqnum  uint32
	Devid   uint32
	Dir     uint32
	Ep      uint32
}

// ReadHeaderBasic reads the 20-byte basic header from the URB stream.
func ReadHeaderBasic(r io.Reader) (HeaderBasic, error) {
	var h HeaderBasic
	err := binary.Read(r, binary.BigEndian, &h)
	return h, err
}

// SubmitFields is the CMD_SUBMIT specific remainder of the 0x30-byte URB
// header.
type SubmitFields struct {
	TransferFlags     uint32
	TransferBufferLen uint32
	StartFrame        uint32
	NumberOfPackets   uint32
	Interval          uint32
	Setup             [8]byte
}

// ReadSubmitFields reads the CMD_SUBMIT remainder after a basic header.
func ReadSubmitFields(r io.Reader) (SubmitFields, error) {
	var f SubmitFields
	err := binary.Read(r, binary.BigEndian, &f)
	return f, err
}

// UnlinkFields is the CMD_UNLINK specific remainder of the URB header.
type UnlinkFields struct {
	UnlinkSeqnum uint32
	Padding      [24]byte
}

// ReadUnlinkFields reads the CMD_UNLINK remainder after a basic header.
func ReadUnlinkFields(r io.Reader) (UnlinkFields, error) {
	var f UnlinkFields
	err := binary.Read(r, binary.BigEndian, &f)
	return f, err
}

// CmdSubmit is a complete URB submission as read from the stream. An OUT
// payload of TransferBufferLen bytes follows it on the wire.
type CmdSubmit struct {
	Basic HeaderBasic
	SubmitFields
}

func (c *CmdSubmit) Write(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, c.Basic); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, c.SubmitFields)
}

// RetSubmit is the reply to CMD_SUBMIT. IN data of ActualLength bytes
// follows it on the wire.
type RetSubmit struct {
	Basic           HeaderBasic
	Status          int32
	ActualLength    uint32
	StartFrame      uint32
	NumberOfPackets uint32
	ErrorCount      uint32
	Padding         [8]byte
}

func (r *RetSubmit) Write(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, r)
}

// CmdUnlink cancels a previously submitted URB by sequence number.
type CmdUnlink struct {
	Basic HeaderBasic
	UnlinkFields
}

func (c *CmdUnlink) Write(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, c.Basic); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, c.UnlinkFields)
}

// RetUnlink is the reply to CMD_UNLINK.
type RetUnlink struct {
	Basic   HeaderBasic
	Status  int32
	Padding [24]byte
}

func (r *RetUnlink) Write(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, r)
}

// ReadExactly fills buf from r, failing on short reads.
func ReadExactly(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
