package wgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/convert.wgsl
var convertShaderWGSL string

// convertSPIRV compiles the conversion kernel once per process.
var convertSPIRV = sync.OnceValues(func() ([]uint32, error) {
	return compileSPIRV(convertShaderWGSL)
})

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not a whole number of words", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// shaderSource returns the kernel as SPIR-V, falling back to WGSL for
// the HAL to translate when naga cannot compile it.
func shaderSource() hal.ShaderSource {
	words, err := convertSPIRV()
	if err != nil {
		slogger().Warn("wgpu: naga compile failed, passing WGSL to the driver", "err", err)
		return hal.ShaderSource{WGSL: convertShaderWGSL}
	}
	return hal.ShaderSource{SPIRV: words}
}
