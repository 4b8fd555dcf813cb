package usb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dlkj/usbd-human-interface-device/internal/log"
	"github.com/dlkj/usbd-human-interface-device/usb"
	"github.com/dlkj/usbd-human-interface-device/usbip"
	"github.com/dlkj/usbd-human-interface-device/virtualbus"
)

const (
	// Standard header peek size
	headerPeekSize = 8

	// The single configuration every exported device reports.
	configValueDefault = 1
)

// String descriptor index 0: the supported-language list (US English).
var langIDDescriptor = []byte{0x04, usb.StringDescType, 0x09, 0x04}

type Server struct {
	config    *ServerConfig
	logger    *slog.Logger
	rawLogger log.RawLogger
	busses    map[uint32]*virtualbus.VirtualBus
	busesMu   sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
	ln        net.Listener
}

func New(config ServerConfig, logger *slog.Logger, rawLogger log.RawLogger) *Server {
	return &Server{
		config:    &config,
		logger:    logger,
		rawLogger: rawLogger,
		busses:    make(map[uint32]*virtualbus.VirtualBus),
		ready:     make(chan struct{}),
	}
}

// AddBus registers a bus with the server. If the bus number is already present,
// an error is returned.
func (s *Server) AddBus(bus *virtualbus.VirtualBus) error {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	if bus == nil {
		return fmt.Errorf("bus is nil")
	}
	if _, ok := s.busses[bus.BusID()]; ok {
		return fmt.Errorf("bus %d already registered", bus.BusID())
	}
	s.busses[bus.BusID()] = bus
	return nil
}

// RemoveBus unregisters a bus from the server.
func (s *Server) RemoveBus(busID uint32) error {
	s.busesMu.Lock()
	bus, ok := s.busses[busID]
	if !ok {
		s.busesMu.Unlock()
		return fmt.Errorf("bus %d not found", busID)
	}

	devices := bus.Devices()
	s.busesMu.Unlock()

	if len(devices) > 0 {
		s.logger.Warn(fmt.Sprintf("Removing non-empty bus %d with %d device(s) attached; removing devices", busID, len(devices)))
		for _, dev := range devices {
			_ = bus.Remove(dev)
		}
	}

	s.busesMu.Lock()
	delete(s.busses, busID)
	s.busesMu.Unlock()

	return bus.Close()
}

// RemoveDeviceByID removes a device by busId and cancels its connections.
func (s *Server) RemoveDeviceByID(busID uint32, deviceID string) error {
	s.busesMu.Lock()
	bus, ok := s.busses[busID]
	s.busesMu.Unlock()

	if !ok {
		return fmt.Errorf("bus %d not found", busID)
	}

	return bus.RemoveDeviceByID(deviceID)
}

// ListBuses returns a snapshot of active bus numbers.
func (s *Server) ListBuses() []uint32 {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	out := make([]uint32, 0, len(s.busses))
	for k := range s.busses {
		out = append(out, k)
	}
	return out
}

// GetBus returns a bus by ID or nil if not present.
func (s *Server) GetBus(busID uint32) *virtualbus.VirtualBus {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	return s.busses[busID]
}

// ListenAndServe starts the USB-IP server and handles incoming connections.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("USBIP server listening", "addr", s.config.Addr)
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("USBIP server stopped")
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		s.logger.Info("Client connected", "remote", c.RemoteAddr())
		go func() {
			if err := s.handleConn(c); err != nil {
				if isClientDisconnect(err) {
					s.logger.Info("Client disconnected", "error", err)
				} else {
					s.logger.Error("Connection handler error", "error", err)
				}
			}
		}()
	}
}

// Ready returns a channel that is closed once the server has successfully bound
// to its listen address and is ready to accept connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Close stops the USB server by closing its listener.
func (s *Server) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// GetListenPort extracts and returns the port number from the server's listen address.
func (s *Server) GetListenPort() uint16 {
	_, portStr, err := net.SplitHostPort(s.config.Addr)
	if err != nil {
		return 0
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port)
}

// --

func (s *Server) handleConn(conn net.Conn) error {
	defer conn.Close()
	conn = &logConn{Conn: conn, s: s}
	if err := conn.SetDeadline(time.Now().Add(s.config.ConnectionTimeout)); err != nil {
		s.logger.Warn("Failed to set deadline", "error", err)
	}

	// Peek first 8 bytes to determine management op or URB stream.
	var hdrBuf [headerPeekSize]byte
	if err := usbip.ReadExactly(conn, hdrBuf[:]); err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	ver := binary.BigEndian.Uint16(hdrBuf[0:2])
	code := binary.BigEndian.Uint16(hdrBuf[2:4])

	if ver == usbip.Version && (code == usbip.OpReqDevlist || code == usbip.OpReqImport) {
		switch code {
		case usbip.OpReqDevlist:
			s.logger.Info("OP_REQ_DEVLIST")
			return s.handleDevList(conn)
		case usbip.OpReqImport:
			s.logger.Info("OP_REQ_IMPORT")
			dev, err := s.handleImport(conn)
			if err != nil {
				return fmt.Errorf("handle import: %w", err)
			}
			return s.handleUrbStream(conn, dev)
		}
	}

	return fmt.Errorf("protocol violation: client sent URB data without OP_REQ_IMPORT")
}

// exportedDevice assembles the wire description served in management replies.
func exportedDevice(m virtualbus.DeviceMeta) usbip.ExportedDevice {
	desc := m.Dev.GetDescriptor()
	exp := usbip.ExportedDevice{
		DeviceSummary: usbip.DeviceSummary{
			ExportMeta:          m.Meta,
			Speed:               desc.Device.Speed,
			IDVendor:            desc.Device.IDVendor,
			IDProduct:           desc.Device.IDProduct,
			BcdDevice:           desc.Device.BcdDevice,
			BDeviceClass:        desc.Device.BDeviceClass,
			BDeviceSubClass:     desc.Device.BDeviceSubClass,
			BDeviceProtocol:     desc.Device.BDeviceProtocol,
			BConfigurationValue: configValueDefault,
			BNumConfigurations:  desc.Device.BNumConfigurations,
			BNumInterfaces:      uint8(len(desc.Interfaces)),
		},
	}
	for _, iface := range desc.Interfaces {
		exp.Interfaces = append(exp.Interfaces, usbip.InterfaceDesc{
			Class:    iface.Descriptor.BInterfaceClass,
			SubClass: iface.Descriptor.BInterfaceSubClass,
			Protocol: iface.Descriptor.BInterfaceProtocol,
		})
	}
	return exp
}

func (s *Server) handleDevList(conn net.Conn) error {
	_ = conn.SetDeadline(time.Time{})
	var buf bytes.Buffer
	rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepDevlist, Status: 0}
	_ = rep.Write(&buf)
	metas := s.getAllDeviceMetas()
	dlh := usbip.DevListReplyHeader{NDevices: uint32(len(metas))}
	_ = dlh.Write(&buf)
	for _, m := range metas {
		exp := exportedDevice(m)
		_ = exp.WriteDevlist(&buf)
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write devlist: %w", err)
	}
	return nil
}

func (s *Server) handleImport(conn net.Conn) (usb.Device, error) {
	var busid [usbip.BusIDSize]byte
	if err := usbip.ReadExactly(conn, busid[:]); err != nil {
		return nil, fmt.Errorf("read import busid: %w", err)
	}
	reqBus := string(busid[:bytes.IndexByte(busid[:], 0)])
	s.logger.Info("Import request", "busid", reqBus)

	var chosen *virtualbus.DeviceMeta
	for _, m := range s.getAllDeviceMetas() {
		if m.Meta.BusDeviceID() == reqBus {
			chosen = &m
			break
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("no device matches busid %s", reqBus)
	}

	var buf bytes.Buffer
	rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepImport, Status: 0}
	_ = rep.Write(&buf)
	exp := exportedDevice(*chosen)
	_ = exp.WriteImport(&buf)
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write import reply failed: %w", err)
	}
	return chosen.Dev, nil
}

// getAllDeviceMetas aggregates device metas from all registered busses.
func (s *Server) getAllDeviceMetas() []virtualbus.DeviceMeta {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	out := []virtualbus.DeviceMeta{}
	for _, b := range s.busses {
		out = append(out, b.DeviceMetas()...)
	}
	return out
}

type logConn struct {
	net.Conn
	s *Server
}

func (lc *logConn) Read(p []byte) (int, error) {
	n, err := lc.Conn.Read(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(true, p[:n])
	}
	return n, err
}

func (lc *logConn) Write(p []byte) (int, error) {
	n, err := lc.Conn.Write(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(false, p[:n])
	}
	return n, err
}

func (s *Server) handleUrbStream(conn net.Conn, dev usb.Device) error {
	_ = conn.SetDeadline(time.Time{})

	var owningBus *virtualbus.VirtualBus
	s.busesMu.Lock()
	for _, b := range s.busses {
		for _, d := range b.Devices() {
			if d == dev {
				owningBus = b
				break
			}
		}
		if owningBus != nil {
			break
		}
	}
	s.busesMu.Unlock()
	if owningBus == nil {
		return fmt.Errorf("device does not belong to any bus")
	}

	ctx := owningBus.Context(dev)
	if ctx == nil {
		return fmt.Errorf("no device context available from bus")
	}

	// Attaching over USB/IP re-enumerates the device, which a physical
	// device would experience as a bus reset.
	if r, ok := dev.(usb.Resetter); ok {
		r.Reset()
	}

	stopTick := s.startTickLoop(ctx, dev)
	defer stopTick()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("device removed, closing URB stream")
			return nil
		default:
		}

		hdr, err := usbip.ReadHeaderBasic(conn)
		if err != nil {
			return fmt.Errorf("read URB header: %w", err)
		}

		switch hdr.Command {
		case usbip.CmdUnlinkCode:
			fields, err := usbip.ReadUnlinkFields(conn)
			if err != nil {
				return fmt.Errorf("read CMD_UNLINK fields: %w", err)
			}
			s.logger.Debug("USBIP_CMD_UNLINK", "seq", hdr.Seqnum, "unlink", fields.UnlinkSeqnum)
			ret := usbip.RetUnlink{
				Basic:  usbip.HeaderBasic{Command: usbip.RetUnlinkCode, Seqnum: hdr.Seqnum},
				Status: usbip.StatusConnReset,
			}
			if err := ret.Write(conn); err != nil {
				return fmt.Errorf("write RET_UNLINK: %w", err)
			}

		case usbip.CmdSubmitCode:
			fields, err := usbip.ReadSubmitFields(conn)
			if err != nil {
				return fmt.Errorf("read CMD_SUBMIT fields: %w", err)
			}
			var outPayload []byte
			if hdr.Dir == usbip.DirOut && fields.TransferBufferLen > 0 {
				outPayload = make([]byte, fields.TransferBufferLen)
				if err := usbip.ReadExactly(conn, outPayload); err != nil {
					return fmt.Errorf("read OUT payload: %w", err)
				}
			}

			respData, status := s.processSubmit(dev, hdr.Ep, hdr.Dir, fields.Setup[:], outPayload)

			ret := usbip.RetSubmit{
				Basic:        usbip.HeaderBasic{Command: usbip.RetSubmitCode, Seqnum: hdr.Seqnum},
				Status:       status,
				ActualLength: uint32(len(respData)),
			}
			var out bytes.Buffer
			if err := ret.Write(&out); err != nil {
				return fmt.Errorf("build RET_SUBMIT header: %w", err)
			}
			if len(respData) > 0 {
				out.Write(respData)
			}
			if _, err := conn.Write(out.Bytes()); err != nil {
				return fmt.Errorf("write RET_SUBMIT: %w", err)
			}

		default:
			return fmt.Errorf("unsupported cmd %d (seq=%d, devid=%d)", hdr.Command, hdr.Seqnum, hdr.Devid)
		}
	}
}

// startTickLoop runs the device's periodic service while a URB stream is
// active so idle-rate retransmission keeps working between host polls. The
// returned function stops the loop.
func (s *Server) startTickLoop(ctx context.Context, dev usb.Device) func() {
	ticker, ok := dev.(usb.Ticker)
	if !ok || s.config.TickInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(s.config.TickInterval)
		defer t.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case now := <-t.C:
				ticker.Tick(uint32(now.Sub(last).Milliseconds()))
				last = now
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// isClientDisconnect tests whether an error represents a normal client
// disconnect (EOF, ECONNRESET, broken pipe, or the Windows WSAECONNRESET
// translated error). We treat those as normal client disconnects and log
// them at Info level instead of Error.
func isClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// On many platforms the underlying error will be a syscall.Errno
		switch t := opErr.Err.(type) {
		case syscall.Errno:
			if t == syscall.ECONNRESET || t == syscall.EPIPE {
				return true
			}
		}
	}
	// Fallback to checking the message for platform-specific strings.
	e := strings.ToLower(err.Error())
	if strings.Contains(e, "connection reset by peer") || strings.Contains(e, "forcibly closed") || strings.Contains(e, "an existing connection was forcibly closed") || strings.Contains(e, "aborted") {
		return true
	}
	return false
}

// processSubmit services one URB. Non-EP0 endpoints go straight to the
// device's transfer handler. EP0 standard device requests are answered
// here; everything else is delegated to the device's control handler, and
// a rejection surfaces to the host as a protocol STALL.
func (s *Server) processSubmit(dev usb.Device, ep uint32, dir uint32, setupBytes []byte, out []byte) ([]byte, int32) {
	if ep != 0 {
		return dev.HandleTransfer(ep, dir, out), usbip.StatusOK
	}

	setup, ok := usb.ParseSetupPacket(setupBytes)
	if !ok {
		return nil, usbip.StatusStall
	}

	if setup.Type() == usb.RequestTypeStandard {
		switch setup.Recipient() {
		case usb.RequestRecipientDevice:
			return s.deviceRequest(dev, setup)
		case usb.RequestRecipientInterface:
			// Alternate settings are not modeled; every interface has a
			// single setting 0.
			switch setup.Request {
			case usb.RequestGetInterface:
				return []byte{0x00}, usbip.StatusOK
			case usb.RequestSetInterface:
				return nil, usbip.StatusOK
			}
		case usb.RequestRecipientEndpoint:
			switch setup.Request {
			case usb.RequestGetStatus:
				return truncate([]byte{0x00, 0x00}, setup.Length), usbip.StatusOK
			case usb.RequestClearFeature, usb.RequestSetFeature:
				return nil, usbip.StatusOK
			}
		}
	}

	if h, ok := dev.(usb.ControlHandler); ok {
		data, err := h.HandleControl(setup, out)
		if err != nil {
			s.logger.Debug("control request stalled",
				"bmRequestType", setup.RequestType, "bRequest", setup.Request,
				"wValue", setup.Value, "wIndex", setup.Index, "error", err)
			return nil, usbip.StatusStall
		}
		return data, usbip.StatusOK
	}
	return nil, usbip.StatusStall
}

// deviceRequest answers EP0 standard requests with a device recipient.
func (s *Server) deviceRequest(dev usb.Device, setup usb.SetupPacket) ([]byte, int32) {
	switch setup.Request {
	case usb.RequestSetAddress:
		return nil, usbip.StatusOK
	case usb.RequestSetConfiguration:
		if r, ok := dev.(usb.Resetter); ok {
			r.Reset()
		}
		return nil, usbip.StatusOK
	case usb.RequestGetConfiguration:
		return []byte{configValueDefault}, usbip.StatusOK
	case usb.RequestGetStatus:
		return truncate([]byte{0x00, 0x00}, setup.Length), usbip.StatusOK
	case usb.RequestGetDescriptor:
		desc := dev.GetDescriptor()
		var data []byte
		switch setup.DescriptorType() {
		case usb.DeviceDescType:
			data = desc.Bytes()
		case usb.ConfigDescType:
			data = desc.ConfigBytes()
		case usb.StringDescType:
			if setup.DescriptorIndex() == 0 {
				data = langIDDescriptor
			} else if str, ok := desc.Strings[setup.DescriptorIndex()]; ok {
				data = usb.EncodeStringDescriptor(str)
			}
		}
		if len(data) == 0 {
			return nil, usbip.StatusStall
		}
		return truncate(data, setup.Length), usbip.StatusOK
	}
	return nil, usbip.StatusStall
}

func truncate(data []byte, wLength uint16) []byte {
	if int(wLength) < len(data) {
		return data[:wLength]
	}
	return data
}
