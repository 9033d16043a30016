package core

// Side identifies which half of the book an order belongs to.
type Side int8

const (
	Bid Side = 1  // buy the traded asset, pay base asset
	Ask Side = -1 // sell the traded asset, receive base asset
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Opposite returns the side a taker order matches against.
func (s Side) Opposite() Side {
	return -s
}
