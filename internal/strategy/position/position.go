package position

// Action is what a strategy did on a tick.
type Action int8

const (
	None Action = 0
	Buy  Action = 1
	Hold Action = 2
	Sell Action = -1
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	default:
		return "NONE"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
