package usb

import "time"

// ServerConfig represents the server subcommand configuration.
type ServerConfig struct {
	Addr              string        `help:"USB-IP server listen address" default:":3241" env:"USBD_HID_ADDR"`
	ConnectionTimeout time.Duration `kong:"-"`
	TickInterval      time.Duration `help:"Idle-rate service interval for attached devices; 0 to disable" default:"4ms" env:"USBD_HID_TICK_INTERVAL"`
}
