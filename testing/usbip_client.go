// Package testing provides a minimal USB/IP client used by integration
// tests to exercise the server the way the kernel's vhci driver would.
package testing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dlkj/usbd-human-interface-device/usbip"
)

type TestUsbIpClient struct {
	address string
	seq     uint32
}

type Device struct {
	Path       string
	BusID      string
	BusNum     uint32
	DeviceNum  uint32
	Speed      uint32
	IDVendor   uint16
	IDProduct  uint16
	BcdDevice  uint16
	Class      uint8
	SubClass   uint8
	Protocol   uint8
	ConfigVal  uint8
	NumConfigs uint8
	NumIfaces  uint8
	Interfaces []usbip.InterfaceDesc
}

type ImportResult struct {
	Conn     net.Conn
	Exported Device
}

// SubmitResult is one RET_SUBMIT reply: the URB status and any IN data.
type SubmitResult struct {
	Status int32
	Data   []byte
}

func NewUsbIpClient(t *testing.T, addr string) *TestUsbIpClient {
	t.Helper()

	return &TestUsbIpClient{
		address: addr,
	}
}

func (c *TestUsbIpClient) nextSeq() uint32 {
	// USBIP seqnum only needs to be unique within the session; tests use a single
	// client per test and the server doesn't require a specific starting value.
	return atomic.AddUint32(&c.seq, 1) - 1
}

func (c *TestUsbIpClient) ListDevices() ([]Device, error) {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := (&usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpReqDevlist}).Write(conn); err != nil {
		return nil, err
	}

	var hdr [12]byte
	if err := usbip.ReadExactly(conn, hdr[:]); err != nil {
		return nil, err
	}

	if v := binary.BigEndian.Uint16(hdr[0:2]); v != usbip.Version {
		return nil, fmt.Errorf("unexpected usbip version %x", v)
	}
	if cmd := binary.BigEndian.Uint16(hdr[2:4]); cmd != usbip.OpRepDevlist {
		return nil, fmt.Errorf("unexpected reply command %x", cmd)
	}

	n := binary.BigEndian.Uint32(hdr[8:12])
	devices := make([]Device, 0, n)
	for i := uint32(0); i < n; i++ {
		dev, err := readExportedDevice(conn, true)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}

	return devices, nil
}

func (c *TestUsbIpClient) AttachDevice(busID string) (*ImportResult, error) {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return nil, err
	}

	if err := (&usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpReqImport}).Write(conn); err != nil {
		conn.Close()
		return nil, err
	}

	var bus [usbip.BusIDSize]byte
	copy(bus[:], busID)
	if _, err := conn.Write(bus[:]); err != nil {
		conn.Close()
		return nil, err
	}

	var hdr [8]byte
	if err := usbip.ReadExactly(conn, hdr[:]); err != nil {
		conn.Close()
		return nil, err
	}
	if v := binary.BigEndian.Uint16(hdr[0:2]); v != usbip.Version {
		conn.Close()
		return nil, fmt.Errorf("unexpected usbip version %x", v)
	}
	if cmd := binary.BigEndian.Uint16(hdr[2:4]); cmd != usbip.OpRepImport {
		conn.Close()
		return nil, fmt.Errorf("unexpected reply command %x", cmd)
	}

	dev, err := readExportedDevice(conn, false)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &ImportResult{Conn: conn, Exported: dev}, nil
}

// readExportedDevice parses the fixed 312-byte device record; devlist
// entries are followed by per-interface triplets, import replies are not.
func readExportedDevice(r net.Conn, readIfaces bool) (Device, error) {
	var base [312]byte
	if err := usbip.ReadExactly(r, base[:]); err != nil {
		return Device{}, err
	}

	pathField := base[0:256]
	busField := base[256:288]

	pathEnd := bytes.IndexByte(pathField, 0)
	if pathEnd == -1 {
		pathEnd = len(pathField)
	}
	busEnd := bytes.IndexByte(busField, 0)
	if busEnd == -1 {
		busEnd = len(busField)
	}

	dev := Device{
		Path:       string(pathField[:pathEnd]),
		BusID:      string(busField[:busEnd]),
		BusNum:     binary.BigEndian.Uint32(base[288:292]),
		DeviceNum:  binary.BigEndian.Uint32(base[292:296]),
		Speed:      binary.BigEndian.Uint32(base[296:300]),
		IDVendor:   binary.BigEndian.Uint16(base[300:302]),
		IDProduct:  binary.BigEndian.Uint16(base[302:304]),
		BcdDevice:  binary.BigEndian.Uint16(base[304:306]),
		Class:      base[306],
		SubClass:   base[307],
		Protocol:   base[308],
		ConfigVal:  base[309],
		NumConfigs: base[310],
		NumIfaces:  base[311],
	}

	if readIfaces && dev.NumIfaces > 0 {
		ifaceBuf := make([]byte, int(dev.NumIfaces)*4)
		if err := usbip.ReadExactly(r, ifaceBuf); err != nil {
			return Device{}, err
		}
		for i := 0; i < int(dev.NumIfaces); i++ {
			o := i * 4
			dev.Interfaces = append(dev.Interfaces, usbip.InterfaceDesc{
				Class:    ifaceBuf[o],
				SubClass: ifaceBuf[o+1],
				Protocol: ifaceBuf[o+2],
			})
		}
	}

	return dev, nil
}

// Submit sends one CMD_SUBMIT and reads the matching RET_SUBMIT. For IN
// transfers bufLen is the host-side buffer size; for OUT transfers pass
// the payload and bufLen is ignored.
func (c *TestUsbIpClient) Submit(conn net.Conn, dir uint32, ep uint32, bufLen uint32, outPayload []byte, setup [8]byte) (*SubmitResult, error) {
	return c.SubmitWithTimeout(conn, dir, ep, bufLen, outPayload, setup, 750*time.Millisecond)
}

func (c *TestUsbIpClient) SubmitWithTimeout(conn net.Conn, dir uint32, ep uint32, bufLen uint32, outPayload []byte, setup [8]byte, timeout time.Duration) (*SubmitResult, error) {
	if conn == nil {
		return nil, io.ErrUnexpectedEOF
	}

	if dir == usbip.DirOut {
		bufLen = uint32(len(outPayload))
	}

	cmd := usbip.CmdSubmit{
		Basic: usbip.HeaderBasic{Command: usbip.CmdSubmitCode, Seqnum: c.nextSeq(), Devid: 0, Dir: dir, Ep: ep},
		SubmitFields: usbip.SubmitFields{
			TransferBufferLen: bufLen,
			Setup:             setup,
		},
	}

	_ = conn.SetDeadline(time.Now().Add(timeout))
	if err := cmd.Write(conn); err != nil {
		return nil, err
	}
	if dir == usbip.DirOut && len(outPayload) > 0 {
		if _, err := conn.Write(outPayload); err != nil {
			return nil, err
		}
	}

	var retHdr [48]byte
	if err := usbip.ReadExactly(conn, retHdr[:]); err != nil {
		return nil, err
	}
	if gotCmd := binary.BigEndian.Uint32(retHdr[0:4]); gotCmd != usbip.RetSubmitCode {
		return nil, fmt.Errorf("unexpected ret cmd %x", gotCmd)
	}
	res := &SubmitResult{
		Status: int32(binary.BigEndian.Uint32(retHdr[20:24])),
	}
	actual := binary.BigEndian.Uint32(retHdr[24:28])
	if dir == usbip.DirIn && actual > 0 {
		res.Data = make([]byte, int(actual))
		if err := usbip.ReadExactly(conn, res.Data); err != nil {
			return nil, err
		}
	}
	_ = conn.SetDeadline(time.Time{})
	return res, nil
}

// ControlIn performs a device-to-host control transfer on EP0.
func (c *TestUsbIpClient) ControlIn(conn net.Conn, requestType, request uint8, value, index, length uint16) (*SubmitResult, error) {
	var setup [8]byte
	setup[0] = requestType
	setup[1] = request
	binary.LittleEndian.PutUint16(setup[2:4], value)
	binary.LittleEndian.PutUint16(setup[4:6], index)
	binary.LittleEndian.PutUint16(setup[6:8], length)
	return c.Submit(conn, usbip.DirIn, 0, uint32(length), nil, setup)
}

// ControlOut performs a host-to-device control transfer on EP0.
func (c *TestUsbIpClient) ControlOut(conn net.Conn, requestType, request uint8, value, index uint16, payload []byte) (*SubmitResult, error) {
	var setup [8]byte
	setup[0] = requestType
	setup[1] = request
	binary.LittleEndian.PutUint16(setup[2:4], value)
	binary.LittleEndian.PutUint16(setup[4:6], index)
	binary.LittleEndian.PutUint16(setup[6:8], uint16(len(payload)))
	return c.Submit(conn, usbip.DirOut, 0, 0, payload, setup)
}

func (c *TestUsbIpClient) ReadInputReport(conn net.Conn, ep uint32) ([]byte, error) {
	res, err := c.Submit(conn, usbip.DirIn, ep, 64, nil, [8]byte{})
	if err != nil {
		return nil, err
	}
	if res.Status != usbip.StatusOK {
		return nil, fmt.Errorf("ret status %d", res.Status)
	}
	return res.Data, nil
}

// PollInputReport polls the interrupt IN endpoint until it sees the wanted
// report or the timeout expires, returning the last report observed.
func (c *TestUsbIpClient) PollInputReport(conn net.Conn, ep uint32, want []byte, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var last []byte
	for {
		got, err := c.ReadInputReport(conn, ep)
		if err != nil {
			return nil, err
		}
		if len(got) > 0 {
			last = got
		}
		if bytes.Equal(got, want) {
			return got, nil
		}
		if time.Now().After(deadline) {
			return last, nil
		}
		time.Sleep(1 * time.Millisecond)
	}
}
