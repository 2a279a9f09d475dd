package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSessionLost — сессию закрыл сервер или сеть, а не пользователь.
var ErrSessionLost = errors.New("app: session lost")

// HandleCommand выполняет строку консоли и возвращает ответ. stop=true —
// пользователь просит завершить работу (пустая строка, quit).
func (a *App) HandleCommand(text string) (reply string, stop bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", true
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "help", "?":
		return strings.Join([]string{
			"status         state, counters and uptime",
			"help           this text",
			"quit | <enter> disconnect and exit",
		}, "\n"), false

	case "status":
		return a.Status(), false

	case "quit", "exit":
		return "", true

	default:
		return fmt.Sprintf("unknown command %q, try help", cmd), false
	}
}

// RunConsole читает команды из r, пока не придёт пустая строка, quit, EOF
// или не закроется ctx. Если раньше оборвалась сессия, возвращает
// ErrSessionLost с причиной обрыва.
func (a *App) RunConsole(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.Done():
			// отмена ctx тоже закрывает сессию
			if ctx.Err() != nil {
				return nil
			}
			if err := a.client.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrSessionLost, err)
			}
			return ErrSessionLost
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			reply, stop := a.HandleCommand(line)
			if reply != "" {
				a.println(reply)
			}
			if stop {
				return nil
			}
		}
	}
}
