package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/oxzi/gomaster/internal"
)

// defaultPort is the master server's well-known UDP port.
const defaultPort = "27950"

// Config is the struct representation of gomaster's YAML configuration file.
// Each field might be overridden by its command line flag.
type Config struct {
	Listen []string `yaml:"listen"`
	Ports  []string `yaml:"ports"`

	User     string `yaml:"user"`
	JailPath string `yaml:"jail_path"`
	Daemon   bool   `yaml:"daemon"`
	Sandbox  bool   `yaml:"sandbox"`

	Verbose bool `yaml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Ports:    []string{defaultPort},
		User:     internal.DefaultUser,
		JailPath: internal.DefaultJailPath,
	}
}

// loadConfig loads a Config from a given YAML configuration file at the path.
// Missing keys keep their default values.
func loadConfig(path string) (Config, error) {
	conf := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return conf, err
	}
	defer func() { _ = f.Close() }()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
		return conf, err
	}
	return conf, nil
}

// validate checks the Config for values which cannot be used.
func (conf Config) validate() error {
	if len(conf.Ports) == 0 {
		return fmt.Errorf("no listen port configured")
	}
	for _, port := range conf.Ports {
		if port == "" {
			return fmt.Errorf("empty listen port")
		}
	}
	for _, addr := range conf.Listen {
		if addr == "" {
			return fmt.Errorf("empty listen address")
		}
	}

	if conf.User == "" {
		return fmt.Errorf("empty user name")
	}
	if conf.JailPath == "" {
		return fmt.Errorf("empty jail path")
	}

	return checkPlatform(conf)
}

// hardener for this Config.
func (conf Config) hardener() *internal.Hardener {
	h := internal.NewHardener()
	h.User = conf.User
	h.JailPath = conf.JailPath
	h.Sandbox = conf.Sandbox
	if conf.Daemon {
		h.Daemon = internal.DaemonRequested
	}
	return h
}

// cmdline holds the parsed command line flags.
type cmdline struct {
	flags      *pflag.FlagSet
	configPath string

	// conf holds the flags' values, only those set explicitly are used.
	conf Config
}

// parseCmdline parses the arguments, without the program's name.
func parseCmdline(args []string) (*cmdline, error) {
	cl := &cmdline{
		flags: pflag.NewFlagSet("gomaster", pflag.ContinueOnError),
		conf:  defaultConfig(),
	}

	fs := cl.flags
	fs.SortFlags = false

	fs.StringVarP(&cl.configPath, "config", "c", "", "YAML configuration `file`")
	fs.StringArrayVarP(&cl.conf.Listen, "listen", "l", nil,
		"Listen on local `address`, might be given multiple times\n"+
			"Valid forms are host, host:port, [ipv6] and [ipv6]:port")
	fs.StringArrayVarP(&cl.conf.Ports, "port", "p", cl.conf.Ports,
		"Listen on `port`, might be given multiple times")
	registerPlatformFlags(fs, &cl.conf)
	fs.BoolVarP(&cl.conf.Verbose, "verbose", "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return cl, nil
}

// config loads the configuration file, if any, and applies all explicitly
// set flags on top of it.
func (cl *cmdline) config() (Config, error) {
	conf := defaultConfig()
	if cl.configPath != "" {
		var err error
		if conf, err = loadConfig(cl.configPath); err != nil {
			return conf, fmt.Errorf("configuration file %s: %w", cl.configPath, err)
		}
	}

	cl.flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			conf.Listen = cl.conf.Listen
		case "port":
			conf.Ports = cl.conf.Ports
		case "daemon":
			conf.Daemon = cl.conf.Daemon
		case "jail-path":
			conf.JailPath = cl.conf.JailPath
		case "user":
			conf.User = cl.conf.User
		case "sandbox":
			conf.Sandbox = cl.conf.Sandbox
		case "verbose":
			conf.Verbose = cl.conf.Verbose
		}
	})

	return conf, conf.validate()
}
