package host

import (
	"github.com/gogpu/devimage/backend"
)

func init() {
	backend.Register(backend.NameHost, func() (backend.Device, error) {
		return &registered{Device: New()}, nil
	})
}

// registered adapts Device to backend.Device.
type registered struct {
	*Device
}

func (r *registered) OpenStream() (backend.Stream, error) {
	s := r.NewStream()
	if s.q.Closed() {
		return nil, ErrClosed
	}
	return s, nil
}
