package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=10000"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`

	// Empty keeps everything in memory and disables message persistence
	BadgerFilepath    string        `env:"BADGER_FILEPATH"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=true"`
	CharReplacement   string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

// Validate catches the settings go-env cannot express.
func (c Config) Validate() error {
	if c.PingInterval >= c.PongTimeout {
		return fmt.Errorf("PING_INTERVAL (%s) must be shorter than PONG_TIMEOUT (%s)", c.PingInterval, c.PongTimeout)
	}
	if c.ConnectionBufferSize < 2 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be at least 2, got %d", c.ConnectionBufferSize)
	}
	if c.MaxContentLength <= 0 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
