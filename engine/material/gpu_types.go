package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Material flag bits stored in GPUMaterialParams.Flags.
const (
	FlagWireframe uint32 = 1 << iota
	FlagHasNormalMap
	FlagHasMetallicRoughnessMap
)

// GPUMaterialParams is the GPU-aligned material uniform.
// Size: 32 bytes (vec4<f32> base color, then metallic, roughness, flags and padding, std140 aligned).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset 0: RGBA albedo, alpha is opacity (16 bytes)
	Metallic  float32    // offset 16
	Roughness float32    // offset 20
	Flags     uint32     // offset 24
	_         uint32     // offset 28: padding to 32 bytes
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.BaseColor[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.BaseColor[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.BaseColor[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.BaseColor[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[24:28], g.Flags)
	return buf
}
