package netsvc

import (
	"time"

	"github.com/fagongzi/goetty/v2"
)

// Dispatch is invoked with every decoded message received on a
// session; handlers reply by calling session.Write directly.
type Dispatch func(session goetty.IOSession, msg interface{}) error

// NewListener starts a goetty application on addr, the same
// goetty.NewApplication(...,goetty.WithAppHandleSessionFunc(...),
// goetty.WithAppSessionOptions(goetty.WithSessionCodec(...))) shape the
// reference corpus's own TCP listeners (pkg/proxy/server.go) use.
func NewListener(addr string, dispatch Dispatch) (goetty.NetApplication, error) {
	encoder, decoder := NewCodec()
	return goetty.NewApplication(addr, func(session goetty.IOSession) error {
		for {
			msg, err := session.Read()
			if err != nil {
				return err
			}
			if err := dispatch(session, msg); err != nil {
				return err
			}
		}
	}, goetty.WithAppSessionOptions(
		goetty.WithSessionCodec(encoder, decoder),
	))
}

// DialTimeout is the connect timeout for outbound inter-instance
// sessions, matching the reference corpus's own proxy connect timeout
// order of magnitude.
const DialTimeout = 3 * time.Second

// Dial opens a session to a peer instance's netsvc listener.
func Dial(addr string) (goetty.IOSession, error) {
	encoder, decoder := NewCodec()
	session := goetty.NewIOSession(goetty.WithSessionCodec(encoder, decoder))
	if err := session.Connect(addr, DialTimeout); err != nil {
		return nil, err
	}
	return session, nil
}
