package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls" validate:"required,min=1,dive,required"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode           string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	StaticPath     string        `mapstructure:"static_path" validate:"required"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	ReadLimit      int64         `mapstructure:"read_limit" validate:"min=512"`
	SendBuffer     int           `mapstructure:"send_buffer" validate:"min=1"`
	WriteWait      time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	PongWait       time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
	PingPeriod     time.Duration `mapstructure:"ping_period" validate:"gt=0,ltfield=PongWait"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ICEServers     []ICEServer   `mapstructure:"ice_servers" validate:"dive"`
	ConnRateLimit  int           `mapstructure:"conn_rate_limit" validate:"min=0"`
	ConnRateWindow time.Duration `mapstructure:"conn_rate_window" validate:"gt=0"`
	KickSlow       bool          `mapstructure:"kick_slow_consumers"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, applies RELAY_* environment
// overrides and validates the result. A missing file falls back to defaults.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("relay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 4000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 64*1024)
	v.SetDefault("send_buffer", 256)
	v.SetDefault("write_wait", "10s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
		{"urls": []string{"stun:stun1.l.google.com:19302"}},
	})
	v.SetDefault("conn_rate_limit", 20)
	v.SetDefault("conn_rate_window", "10s")
	v.SetDefault("kick_slow_consumers", false)
}

var validate = validator.New()

// Validate checks field constraints and that every ICE server url parses as
// a stun/turn URI.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var errs []error
	for _, s := range c.ICEServers {
		for _, raw := range s.URLs {
			if _, err := stun.ParseURI(raw); err != nil {
				errs = append(errs, fmt.Errorf("ice server %q: %w", raw, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// WebRTCICEServers converts the configured servers to the form browsers and
// pion peers accept as RTCConfiguration.iceServers.
func (c *Config) WebRTCICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}
