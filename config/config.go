// Package config loads transport configuration from TOML or YAML files.
package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/transportkit/codec"
	"github.com/vinayprograms/transportkit/endpoint"
	"github.com/vinayprograms/transportkit/logging"
	"github.com/vinayprograms/transportkit/transport"
)

// ErrInsecurePermissions is returned when a file holding NATS secrets is
// readable by group or others.
var ErrInsecurePermissions = fmt.Errorf("config file has insecure permissions")

// Config is the on-disk transport configuration.
type Config struct {
	Transport TransportSection `toml:"transport" yaml:"transport"`
	WebSocket WebSocketSection `toml:"websocket" yaml:"websocket"`
	NATS      NATSSection      `toml:"nats" yaml:"nats"`
	Log       LogSection       `toml:"log" yaml:"log"`
}

// TransportSection selects the provider and codec.
type TransportSection struct {
	Kind  string `toml:"kind" yaml:"kind"`
	Codec string `toml:"codec" yaml:"codec"`
}

// WebSocketSection configures the WebSocket provider.
type WebSocketSection struct {
	Server           string            `toml:"server" yaml:"server"`
	Protocols        []string          `toml:"protocols" yaml:"protocols"`
	Reconnect        bool              `toml:"reconnect" yaml:"reconnect"`
	ReconnectAfter   Duration          `toml:"reconnect_after" yaml:"reconnect_after"`
	WriteTimeout     Duration          `toml:"write_timeout" yaml:"write_timeout"`
	HandshakeTimeout Duration          `toml:"handshake_timeout" yaml:"handshake_timeout"`
	CloseTimeout     Duration          `toml:"close_timeout" yaml:"close_timeout"`
	MaxMessageSize   int64             `toml:"max_message_size" yaml:"max_message_size"`
	Headers          map[string]string `toml:"headers" yaml:"headers"`
}

// NATSSection configures the NATS endpoint used with the postmessage provider.
type NATSSection struct {
	URL            string   `toml:"url" yaml:"url"`
	Name           string   `toml:"name" yaml:"name"`
	Token          string   `toml:"token" yaml:"token"`
	User           string   `toml:"user" yaml:"user"`
	Password       string   `toml:"password" yaml:"password"`
	Publish        string   `toml:"publish" yaml:"publish"`
	Subscribe      string   `toml:"subscribe" yaml:"subscribe"`
	ConnectTimeout Duration `toml:"connect_timeout" yaml:"connect_timeout"`
}

// LogSection configures the logger.
type LogSection struct {
	Level     string `toml:"level" yaml:"level"`
	Component string `toml:"component" yaml:"component"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	ws := transport.DefaultWebSocketConfig("")
	nc := endpoint.DefaultNATSConfig()
	return &Config{
		Transport: TransportSection{
			Kind:  string(transport.KindWebSocket),
			Codec: codec.NameJSON,
		},
		WebSocket: WebSocketSection{
			ReconnectAfter:   Duration(ws.ReconnectAfter),
			WriteTimeout:     Duration(ws.WriteTimeout),
			HandshakeTimeout: Duration(ws.HandshakeTimeout),
			CloseTimeout:     Duration(ws.CloseTimeout),
			MaxMessageSize:   ws.MaxMessageSize,
		},
		NATS: NATSSection{
			URL:            nc.URL,
			ConnectTimeout: Duration(nc.ConnectTimeout),
		},
		Log: LogSection{
			Level: string(logging.LevelInfo),
		},
	}
}

// StandardPaths returns the standard config file locations in order of priority
func StandardPaths() []string {
	paths := []string{"transport.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "transportkit", "transport.toml"))
	}

	return paths
}

// Find loads the first config file present in StandardPaths. It returns
// Default and an empty path when none exists.
func Find() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}
	return Default(), "", nil
}

// Load reads path on top of Default. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if cfg.NATS.Token != "" || cfg.NATS.Password != "" {
		if err := checkPermissions(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// checkPermissions rejects files readable by group or others (Unix only).
func checkPermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf("%w: %s has mode %04o (must not be group or world accessible)",
			ErrInsecurePermissions, path, mode)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch transport.Kind(c.Transport.Kind) {
	case transport.KindWebSocket:
		if c.WebSocket.Server == "" {
			return fmt.Errorf("websocket.server is required")
		}
	case transport.KindPostMessage:
		if c.NATS.Publish == "" || c.NATS.Subscribe == "" {
			return fmt.Errorf("nats.publish and nats.subscribe are required")
		}
	case transport.KindDummy:
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}

	if _, _, err := codec.Lookup(c.Transport.Codec); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.WebSocket.ReconnectAfter < 0 || c.WebSocket.WriteTimeout < 0 ||
		c.WebSocket.HandshakeTimeout < 0 || c.WebSocket.CloseTimeout < 0 {
		return fmt.Errorf("websocket durations must not be negative")
	}
	if c.WebSocket.MaxMessageSize < 0 {
		return fmt.Errorf("websocket.max_message_size must not be negative")
	}
	return nil
}

// Codec returns the configured serializer and deserializer.
func (c *Config) Codec() (transport.Serializer, transport.Deserializer, error) {
	return codec.Lookup(c.Transport.Codec)
}

// Logger returns a console logger at the configured level.
func (c *Config) Logger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	l := logging.New()
	l.SetLevel(level)
	if c.Log.Component != "" {
		l = l.WithComponent(c.Log.Component)
	}
	return l, nil
}

// WebSocketConfig maps the [websocket] section onto a provider config. The
// codec and logger are filled in from their sections.
func (c *Config) WebSocketConfig() (*transport.WebSocketConfig, error) {
	ser, de, err := c.Codec()
	if err != nil {
		return nil, err
	}
	log, err := c.Logger()
	if err != nil {
		return nil, err
	}

	var header http.Header
	if len(c.WebSocket.Headers) > 0 {
		header = make(http.Header, len(c.WebSocket.Headers))
		for k, v := range c.WebSocket.Headers {
			header.Set(k, v)
		}
	}

	ws := c.WebSocket
	return &transport.WebSocketConfig{
		Server:           ws.Server,
		Reconnect:        ws.Reconnect,
		ReconnectAfter:   ws.ReconnectAfter.Std(),
		Protocols:        ws.Protocols,
		Header:           header,
		Serializer:       ser,
		Deserializer:     de,
		HandshakeTimeout: ws.HandshakeTimeout.Std(),
		WriteTimeout:     ws.WriteTimeout.Std(),
		CloseTimeout:     ws.CloseTimeout.Std(),
		MaxMessageSize:   ws.MaxMessageSize,
		Logger:           log,
	}, nil
}

// NATSConfig maps the [nats] section onto an endpoint config.
func (c *Config) NATSConfig() endpoint.NATSConfig {
	nc := endpoint.DefaultNATSConfig()
	n := c.NATS
	if n.URL != "" {
		nc.URL = n.URL
	}
	nc.Name = n.Name
	nc.Token = n.Token
	nc.User = n.User
	nc.Password = n.Password
	nc.PublishSubject = n.Publish
	nc.SubscribeSubject = n.Subscribe
	if n.ConnectTimeout > 0 {
		nc.ConnectTimeout = time.Duration(n.ConnectTimeout)
	}
	return nc
}
