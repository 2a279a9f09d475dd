package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/EgorLis/dybarrage/internal/barrage"
)

// Duration читается из JSON как строка ("40s", "1m30s") или число секунд.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x * float64(time.Second))
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("duration %q: %w", x, err)
		}
		d.Duration = p
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("duration: unexpected %T", v)
	}
	return nil
}

type Config struct {
	Room  string `json:"room"`
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Group int    `json:"group"`

	// адрес ретранслятора (/ws, /metrics, /healthz); пусто — не поднимаем
	Listen string `json:"listen"`

	HandshakeTimeout  Duration `json:"handshake_timeout"`
	KeepaliveInterval Duration `json:"keepalive_interval"`

	LogLevel string `json:"log_level"`
	// не печатать чат в консоль
	Quiet bool `json:"quiet"`
}

func DefaultConfig() Config {
	return Config{
		Host:              barrage.DefaultHost,
		Port:              barrage.DefaultPort,
		Group:             barrage.DefaultGroup,
		KeepaliveInterval: Duration{barrage.KeepaliveInterval},
		LogLevel:          "info",
	}
}

// LoadConfig накладывает JSON-файл поверх cfg. Поля, которых нет в файле,
// остаются как были.
func LoadConfig(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Room) == "" {
		errs = append(errs, errors.New("room is required"))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.HandshakeTimeout.Duration < 0 {
		errs = append(errs, errors.New("handshake_timeout must not be negative"))
	}
	if c.KeepaliveInterval.Duration < 0 {
		errs = append(errs, errors.New("keepalive_interval must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// ClientOptions переводит конфиг в опции barrage.Client.
func (c Config) ClientOptions() []barrage.Option {
	return []barrage.Option{
		barrage.WithAddress(c.Host, c.Port),
		barrage.WithGroup(c.Group),
		barrage.WithHandshakeTimeout(c.HandshakeTimeout.Duration),
		barrage.WithKeepalive(c.KeepaliveInterval.Duration, nil),
	}
}
