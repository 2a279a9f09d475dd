package barrage

import "fmt"

// State — состояние сессии комнаты.
type State int32

const (
	Disconnected State = iota
	Connecting
	LoggingIn
	JoiningGroup
	Streaming
	Closed
)

var stateNames = [...]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	LoggingIn:    "logging_in",
	JoiningGroup: "joining_group",
	Streaming:    "streaming",
	Closed:       "closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// States перечисляет все состояния (для метрик).
func States() []State {
	return []State{Disconnected, Connecting, LoggingIn, JoiningGroup, Streaming, Closed}
}

// open — сокет есть и ещё не закрыт.
func (s State) open() bool {
	return s == LoggingIn || s == JoiningGroup || s == Streaming
}
