package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Версия проставляется при сборке через -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dybarrage",
		Short: "Douyu danmaku (chat) client",
		Long: `dybarrage подключается к чату комнаты Douyu по протоколу openbarrage,
печатает сообщения в консоль и, по желанию, раздаёт их по WebSocket.

Пустая строка в консоли завершает работу.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		tailCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
