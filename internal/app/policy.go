package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(c *Conn) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(*Conn) BackpressureAction {
	return KickMember
}

// TolerantPolicy drops the frame and keeps the connection.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(*Conn) BackpressureAction {
	return DropFrame
}
