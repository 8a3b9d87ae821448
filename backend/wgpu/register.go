package wgpu

import (
	"github.com/gogpu/devimage/backend"
)

func init() {
	backend.Register(backend.NameWGPU, func() (backend.Device, error) {
		d, err := New()
		if err != nil {
			return nil, err
		}
		return &registered{Device: d}, nil
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
