package barrage

// Observer получает события клиента для метрик. Вызывается синхронно из
// горячих путей (в том числе под внутренним мьютексом), поэтому методы
// должны быть быстрыми и не блокироваться.
type Observer interface {
	StateChanged(from, to State)
	FrameSent(kind string)
	FrameReceived(msgType string)
	FrameDropped(reason string)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State) {}
func (nopObserver) FrameSent(string)          {}
func (nopObserver) FrameReceived(string)      {}
func (nopObserver) FrameDropped(string)       {}
