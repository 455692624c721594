package internal

import (
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"chat-relay/auth"
	"chat-relay/errors"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080" validate:"min=0,max=65535"`
	AdminPort            int           `env:"ADMIN_PORT,default=9090" validate:"min=0,max=65535"`
	InspectPort          int           `env:"INSPECT_PORT,default=8081" validate:"min=0,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	LogFile              string        `env:"LOG_FILE"`
	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=8" validate:"min=1"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`
	ReadTimeout          time.Duration `env:"READ_TIMEOUT,default=60s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=localhost:3000"`
	HistoryBackend       string        `env:"HISTORY_BACKEND,default=memory" validate:"oneof=memory badger"`
	ModerationWordsFile  string        `env:"MODERATION_WORDS_FILE"`
	CharReplacement      string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	PasscodeMemoryKiB    int           `env:"PASSCODE_MEMORY_KIB,default=19456" validate:"min=8"`
	PasscodeIterations   int           `env:"PASSCODE_ITERATIONS,default=2" validate:"min=1"`
	PasscodeParallelism  int           `env:"PASSCODE_PARALLELISM,default=1" validate:"min=1,max=255"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s" validate:"gt=0"`
}

// LoadConfig reads the optional dotenv files (".env" when none is given) then the environment.
// Variables already set in the environment win over the files.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("unable to load dotenv: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.AdminPort)
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func (c Config) PasscodeParams() auth.Params {
	return auth.Params{
		Memory:      uint32(c.PasscodeMemoryKiB),
		Iterations:  uint32(c.PasscodeIterations),
		Parallelism: uint8(c.PasscodeParallelism),
	}
}

// Origins splits ALLOWED_ORIGINS into websocket origin patterns.
func (c Config) Origins() []string {
	return ParseOrigins(c.AllowedOrigins)
}

func ParseOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 || strings.TrimSpace(str) == "" {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single visible character, got %q",
			str,
		)
	}
	return r[0], nil
}
