package viewsync

// ConnState is the connection state of a subscription.
type ConnState int

// ConnState constants
const (
	// StateConnecting means a snapshot fetch or stream subscribe is in progress.
	StateConnecting ConnState = iota
	// StateSubscribed means the stream connection is live.
	StateSubscribed
	// StateDisconnected means the stream connection dropped; a reconnect is
	// scheduled automatically.
	StateDisconnected
	// StateTimedOut means the stream subscribe timed out. There is no automatic
	// retry out of this state; only an explicit Activate leaves it.
	StateTimedOut
)

// String implements Stringer for ConnState.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateDisconnected:
		return "disconnected"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ChannelStatus is a status value reported by a stream channel's status callback.
type ChannelStatus string

// ChannelStatus constants
const (
	ChannelStatusSubscribed   ChannelStatus = "SUBSCRIBED"
	ChannelStatusClosed       ChannelStatus = "CLOSED"
	ChannelStatusChannelError ChannelStatus = "CHANNEL_ERROR"
	ChannelStatusTimedOut     ChannelStatus = "TIMED_OUT"
)
