package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EgorLis/dybarrage/internal/relay"
)

func tailCmd() *cobra.Command {
	var (
		url    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print chat events from a running relay",
		Long: `Подписаться на ретранслятор другого процесса "dybarrage run --listen".

Examples:
  dybarrage tail --url ws://127.0.0.1:8080/ws
  dybarrage tail --url ws://127.0.0.1:8080/ws --format pb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return relay.Tail(ctx, tailURL(url, format), func(e relay.Event) {
				fmt.Fprintf(out, "[%s] %s(%s) : %s\n", e.Room, e.Nickname, e.Level, e.Text)
			})
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "ws://127.0.0.1:8080/ws", "Relay websocket URL")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Wire format: json or pb")

	return cmd
}

func tailURL(url, format string) string {
	if relay.ParseFormat(format) != relay.FormatProto || strings.Contains(url, "format=") {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&format=pb"
	}
	return url + "?format=pb"
}
