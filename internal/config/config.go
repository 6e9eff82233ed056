package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MESHCALL"

type ICEConfig struct {
	// Servers is a comma-separated list of hostnames or stun:/turn:/turns: URLs.
	Servers    string `mapstructure:"servers"`
	Username   string `mapstructure:"username"`
	Credential string `mapstructure:"credential"`
}

type MediaConfig struct {
	Audio        bool   `mapstructure:"audio"`
	Video        bool   `mapstructure:"video"`
	AudioFile    string `mapstructure:"audio_file"`
	VideoFile    string `mapstructure:"video_file"`
	AllowNoMedia bool   `mapstructure:"allow_no_media"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`

	// client
	RelayURL  string      `mapstructure:"relay_url"`
	Room      string      `mapstructure:"room"`
	Name      string      `mapstructure:"name"`
	PeerID    string      `mapstructure:"peer_id"`
	RecordDir string      `mapstructure:"record_dir"`
	ICE       ICEConfig   `mapstructure:"ice"`
	Media     MediaConfig `mapstructure:"media"`

	// relay server
	Port           int           `mapstructure:"port"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	SignalRate     int           `mapstructure:"signal_rate"`
	SignalInterval time.Duration `mapstructure:"signal_interval"`
	Backpressure   string        `mapstructure:"backpressure"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"mode":           "mode",
	"log-level":      "log_level",
	"relay":          "relay_url",
	"room":           "room",
	"name":           "name",
	"id":             "peer_id",
	"record-dir":     "record_dir",
	"ice-servers":    "ice.servers",
	"ice-username":   "ice.username",
	"ice-credential": "ice.credential",
	"audio":          "media.audio",
	"video":          "media.video",
	"audio-file":     "media.audio_file",
	"video-file":     "media.video_file",
	"allow-no-media": "media.allow_no_media",
	"port":           "port",
	"secret":         "secret",
	"backpressure":   "backpressure",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")

	v.SetDefault("relay_url", "ws://localhost:8080/ws")
	v.SetDefault("room", "main")
	v.SetDefault("name", "guest")
	v.SetDefault("peer_id", "")
	v.SetDefault("record_dir", "")
	v.SetDefault("ice.servers", "")
	v.SetDefault("ice.username", "")
	v.SetDefault("ice.credential", "")
	v.SetDefault("media.audio", true)
	v.SetDefault("media.video", true)
	v.SetDefault("media.audio_file", "")
	v.SetDefault("media.video_file", "")
	v.SetDefault("media.allow_no_media", true)

	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "meshcall-dev-secret")
	v.SetDefault("signal_rate", 200)
	v.SetDefault("signal_interval", "1s")
	v.SetDefault("backpressure", "kick")
}

// Load reads configuration with the following priority:
// flags > MESHCALL_* environment > config/config.<CONFIG_ENV>.yaml > defaults.
// CONFIG_FILE overrides the file path.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	fileName := os.Getenv("CONFIG_FILE")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Debug().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Str("relay", cfg.RelayURL).
		Str("room", cfg.Room).
		Int("port", cfg.Port).
		Msg("config resolved")
	return &cfg, nil
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ICEServers builds the STUN/TURN list for peer connections.
func (c *Config) ICEServers() []webrtc.ICEServer {
	return BuildICEServers(c.ICE.Servers, c.ICE.Username, c.ICE.Credential)
}
