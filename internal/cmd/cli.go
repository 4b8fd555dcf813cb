package cmd

// LogConfig holds the logging flags shared by every command.
type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"USBD_HID_LOG_LEVEL"`
	File    string `help:"Log file path; logs to stdout/stderr when empty" env:"USBD_HID_LOG_FILE"`
	RawFile string `help:"File receiving a hex dump of raw bus traffic" env:"USBD_HID_LOG_RAW_FILE"`
}

// CLI is the root command tree parsed by kong.
type CLI struct {
	Log        LogConfig     `embed:"" prefix:"log."`
	ConfigPath string        `name:"config" help:"Path to a configuration file" type:"path"`
	Server     Server        `cmd:"" help:"Export virtual HID devices over USB-IP" default:"withargs"`
	ConfigInit ConfigInit    `cmd:"" name:"config-init" help:"Generate a configuration template"`
}
