package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dlkj/usbd-human-interface-device/device/consumer"
	"github.com/dlkj/usbd-human-interface-device/device/joystick"
	"github.com/dlkj/usbd-human-interface-device/device/keyboard"
	"github.com/dlkj/usbd-human-interface-device/device/mouse"
	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/dlkj/usbd-human-interface-device/internal/log"
	"github.com/dlkj/usbd-human-interface-device/internal/server/usb"
	"github.com/dlkj/usbd-human-interface-device/virtualbus"
)

// pid.codes test vendor ID; product IDs are assigned sequentially per
// exported device.
const (
	demoVendorID    = 0x1209
	demoProductBase = 0x0001
)

type Server struct {
	UsbServerConfig   usb.ServerConfig `embed:"" prefix:"usb."`
	Devices           []string         `help:"Devices to export: boot-keyboard, nkro-keyboard, boot-mouse, wheel-mouse, joystick, consumer, consumer-fixed" default:"boot-keyboard"`
	ConnectionTimeout time.Duration    `help:"Handshake timeout for new client connections" default:"30s" env:"USBD_HID_CONNECTION_TIMEOUT"`
}

// Run is called by Kong when the server command is executed.
func (s *Server) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

func (s *Server) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	s.UsbServerConfig.ConnectionTimeout = s.ConnectionTimeout

	logger.Info("Starting USB-IP HID server", "addr", s.UsbServerConfig.Addr)

	usbSrv := usb.New(s.UsbServerConfig, logger, rawLogger)

	bus := virtualbus.New()
	if err := usbSrv.AddBus(bus); err != nil {
		return fmt.Errorf("register bus: %w", err)
	}
	for i, kind := range s.Devices {
		dev, err := buildDevice(kind, uint16(demoProductBase+i), logger)
		if err != nil {
			return err
		}
		if _, err := bus.Add(dev); err != nil {
			return fmt.Errorf("attach %s: %w", kind, err)
		}
		logger.Info("Exported device", "kind", kind, "bus", bus.BusID())
	}

	usbErrCh := make(chan error, 1)
	go func() {
		usbErrCh <- usbSrv.ListenAndServe()
	}()

	select {
	case err := <-usbErrCh:
		return err
	case <-usbSrv.Ready():
	}

	select {
	case <-ctx.Done():
		_ = usbSrv.Close()
		<-usbErrCh
		return nil
	case err := <-usbErrCh:
		return err
	}
}

// buildDevice assembles a single-interface HID device of the named kind.
func buildDevice(kind string, pid uint16, logger *slog.Logger) (*hidclass.Class, error) {
	b := hidclass.NewBuilder(demoVendorID, pid).
		Strings("usbd-hid", kind, fmt.Sprintf("%06d", pid)).
		Logger(logger)
	switch kind {
	case "boot-keyboard":
		b = keyboard.ConfigureBoot(b)
	case "nkro-keyboard":
		b = keyboard.ConfigureNKRO(b)
	case "boot-mouse":
		b = mouse.ConfigureBoot(b)
	case "wheel-mouse":
		b = mouse.ConfigureWheel(b)
	case "joystick":
		b = joystick.Configure(b)
	case "consumer":
		b = consumer.ConfigureMultiple(b)
	case "consumer-fixed":
		b = consumer.ConfigureFixed(b)
	default:
		return nil, fmt.Errorf("unknown device kind %q", kind)
	}
	return b.Build()
}
