package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/EgorLis/dybarrage/internal/app"
)

type runFlags struct {
	config           string
	room             string
	host             string
	port             int
	group            int
	listen           string
	handshakeTimeout time.Duration
	logLevel         string
	quiet            bool
}

func runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to a room and print its chat",
		Long: `Подключиться к комнате и печатать чат в формате "ник(уровень) : текст".

Флаги перекрывают значения из --config.

Examples:
  dybarrage run --room 610588
  dybarrage run --config conf/dybarrage.json --listen :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, f)
			if err != nil {
				return err
			}
			return runApp(cmd, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "JSON config file")
	fl.StringVarP(&f.room, "room", "r", "", "Room id")
	fl.StringVar(&f.host, "host", "", "Barrage server host")
	fl.IntVar(&f.port, "port", 0, "Barrage server port")
	fl.IntVar(&f.group, "group", 0, "Message group id")
	fl.StringVar(&f.listen, "listen", "", "Relay address for /ws, /metrics, /healthz (empty: off)")
	fl.DurationVar(&f.handshakeTimeout, "handshake-timeout", 0, "Give up if the group is not joined in time (0: wait forever)")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print chat lines")

	return cmd
}

// buildConfig: значения по умолчанию, потом файл, потом явно заданные флаги.
func buildConfig(cmd *cobra.Command, f runFlags) (app.Config, error) {
	cfg := app.DefaultConfig()
	if f.config != "" {
		if err := app.LoadConfig(f.config, &cfg); err != nil {
			return cfg, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("room") {
		cfg.Room = f.room
	}
	if fl.Changed("host") {
		cfg.Host = f.host
	}
	if fl.Changed("port") {
		cfg.Port = f.port
	}
	if fl.Changed("group") {
		cfg.Group = f.group
	}
	if fl.Changed("listen") {
		cfg.Listen = f.listen
	}
	if fl.Changed("handshake-timeout") {
		cfg.HandshakeTimeout.Duration = f.handshakeTimeout
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fl.Changed("quiet") {
		cfg.Quiet = f.quiet
	}
	return cfg, cfg.Validate()
}

func runApp(cmd *cobra.Command, cfg app.Config) error {
	level, _ := app.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, log, cmd.OutOrStdout())
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	log.Info("running, empty line or Ctrl+C to stop", "room", cfg.Room)

	// обрыв со стороны сервера — ненулевой код выхода
	return a.RunConsole(ctx, cmd.InOrStdin())
}
