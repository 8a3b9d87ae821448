package backend

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/devimage/substrate"
)

// stubDevice satisfies Device without doing any work.
type stubDevice struct {
	substrate.Device
	name string
}

func (d *stubDevice) Name() string { return d.name }

func (d *stubDevice) OpenStream() (Stream, error) { return stubStream{d}, nil }

func (d *stubDevice) Close() error { return nil }

type stubStream struct{ dev *stubDevice }

func (s stubStream) Device() substrate.Device          { return s.dev }
func (s stubStream) Synchronize(context.Context) error { return nil }
func (s stubStream) Close() error                      { return nil }

func withRegistry(t *testing.T, entries map[string]Factory) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = entries
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	})
}

func ok(name string) Factory {
	return func() (Device, error) { return &stubDevice{name: name}, nil }
}

func failing(err error) Factory {
	return func() (Device, error) { return nil, err }
}

func TestRegistryRegisterAndOpen(t *testing.T) {
	withRegistry(t, map[string]Factory{})
	Register("test", ok("test"))

	if !IsRegistered("test") {
		t.Fatal("test backend should be registered")
	}
	dev, err := Open("test")
	if err != nil {
		t.Fatalf("Open(test) error = %v", err)
	}
	if dev.Name() != "test" {
		t.Errorf("Open(test).Name() = %q, want %q", dev.Name(), "test")
	}
}

func TestRegistryOpenUnregistered(t *testing.T) {
	withRegistry(t, map[string]Factory{})
	_, err := Open("nonexistent")
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryOpenFactoryError(t *testing.T) {
	cause := errors.New("no adapter")
	withRegistry(t, map[string]Factory{"broken": failing(cause)})

	_, err := Open("broken")
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, cause) {
		t.Errorf("Open(broken) error = %v, want both sentinel and cause", err)
	}
}

func TestRegistryAvailable(t *testing.T) {
	withRegistry(t, map[string]Factory{"b": ok("b"), "a": ok("a")})
	if got := Available(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Available() = %v, want [a b]", got)
	}
}

func TestRegistryDefault(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]Factory
		want    string
		wantErr bool
	}{
		{
			name:    "gpu preferred",
			entries: map[string]Factory{NameHost: ok(NameHost), NameWGPU: ok(NameWGPU)},
			want:    NameWGPU,
		},
		{
			name:    "fallback to host",
			entries: map[string]Factory{NameHost: ok(NameHost), NameWGPU: failing(errors.New("no gpu"))},
			want:    NameHost,
		},
		{
			name:    "unprioritized backend",
			entries: map[string]Factory{"custom": ok("custom")},
			want:    "custom",
		},
		{
			name:    "nothing registered",
			entries: map[string]Factory{},
			wantErr: true,
		},
		{
			name:    "everything fails",
			entries: map[string]Factory{NameWGPU: failing(errors.New("no gpu"))},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRegistry(t, tt.entries)
			dev, err := Default()
			if tt.wantErr {
				if !errors.Is(err, ErrBackendNotAvailable) {
					t.Errorf("Default() error = %v, want ErrBackendNotAvailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Default() error = %v", err)
			}
			if dev.Name() != tt.want {
				t.Errorf("Default().Name() = %q, want %q", dev.Name(), tt.want)
			}
		})
	}
}

func TestRegistryUnregister(t *testing.T) {
	withRegistry(t, map[string]Factory{})
	Register("test-backend", ok("test-backend"))
	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}
