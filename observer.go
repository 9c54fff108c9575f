package exchange

// Observer receives lifecycle notifications from an Engine and its
// connections, for metrics and diagnostics hosts that want more than the
// structured log lines the Engine itself emits. Grounded on
// shockwave/pkg/shockwave/server.Stats's atomic-counter style, generalized
// into callbacks so a host can wire its own counters, histograms, or trace
// spans instead of polling a fixed struct.
type Observer interface {
	OnStarted(addr string)
	OnStopped()
	OnConnectionOpened(remoteAddr string)
	OnConnectionClosed(remoteAddr string)
	OnHeadReceived(head *Head)
	OnResponseSent(resp *Response)
}

type noopObserver struct{}

func (noopObserver) OnStarted(string)          {}
func (noopObserver) OnStopped()                {}
func (noopObserver) OnConnectionOpened(string) {}
func (noopObserver) OnConnectionClosed(string) {}
func (noopObserver) OnHeadReceived(*Head)      {}
func (noopObserver) OnResponseSent(*Response)  {}

// NoopObserver returns an Observer that does nothing, the default when a
// host does not supply one.
func NoopObserver() Observer { return noopObserver{} }
