package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"3000"`
	Game       Game      `yaml:"game"`
	WebSocket  WebSocket `yaml:"websocket"`
	Redis      Redis     `yaml:"redis"`
}

type Game struct {
	TurnTimeout  time.Duration `yaml:"turn-timeout" env:"GAME_TURN_TIMEOUT" env-default:"30s"`
	RoomIDLength int           `yaml:"room-id-length" env:"GAME_ROOM_ID_LENGTH" env-default:"6"`
}

type WebSocket struct {
	AllowedOrigins []string      `yaml:"allowed-origins" env:"WS_ALLOWED_ORIGINS" env-separator:","`
	SendBuffer     int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"32"`
	WriteTimeout   time.Duration `yaml:"write-timeout" env:"WS_WRITE_TIMEOUT" env-default:"10s"`
	PongTimeout    time.Duration `yaml:"pong-timeout" env:"WS_PONG_TIMEOUT" env-default:"60s"`
}

// Redis holds the match archive connection. The archive is off unless Enabled.
type Redis struct {
	Enabled   bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host      string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port      string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	ResultTTL time.Duration `yaml:"result-ttl" env:"REDIS_RESULT_TTL" env-default:"168h"`
}

// Load reads path when it exists and applies environment overrides on top.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file or the environment.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) validate() error {
	if that.Game.TurnTimeout <= 0 {
		return fmt.Errorf("game.turn-timeout must be positive, got %s", that.Game.TurnTimeout)
	}

	if that.Game.RoomIDLength < 4 {
		return fmt.Errorf("game.room-id-length must be at least 4, got %d", that.Game.RoomIDLength)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
