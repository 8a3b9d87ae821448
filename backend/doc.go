// Package backend provides a registry of substrate implementations.
//
// Backends register a Factory from an init() function and are selected
// at runtime by name. Import the backends a program may use:
//
//	import (
//		_ "github.com/gogpu/devimage/backend/host"
//		_ "github.com/gogpu/devimage/backend/wgpu"
//	)
//
// # Backend Selection
//
// Use Default() to open the best available backend, or Open() to request
// a specific one by name:
//
//	dev, err := backend.Default()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	stream, err := dev.OpenStream()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer stream.Close()
//
//	img, err := devimage.New(64, 64, pixfmt.RGB, pixfmt.BT709, pixfmt.Full, stream)
//
// # Available Backends
//
//   - "wgpu": compute shaders through gogpu/wgpu (Vulkan by default)
//   - "host": in-process reference implementation, always available
package backend
