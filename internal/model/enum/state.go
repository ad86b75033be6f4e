package enum

// CollectorState tracks a source collector's connection lifecycle.
type CollectorState uint8

const (
	StateDisconnected CollectorState = iota
	StateConnecting
	StateConnected
	StateAutoSubscribing
	StateSubscribed
	StateRunning
	StateClosed
)

func (s CollectorState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateAutoSubscribing:
		return "AutoSubscribing"
	case StateSubscribed:
		return "Subscribed"
	case StateRunning:
		return "Running"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
