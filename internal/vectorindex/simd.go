package vectorindex

import (
	"math"

	"github.com/klauspost/cpuid/v2"
)

// laneWidth is the widest unrolled accumulator width the detected CPU
// feature set justifies. True SIMD intrinsics aren't portable Go; this is
// the idiomatic realization of "widest lane size available at runtime" —
// an 8-wide unrolled loop on AVX2/NEON-capable cores, 4-wide otherwise.
// The Go compiler auto-vectorizes unrolled float32 accumulation loops on
// amd64/arm64 reasonably well when lanes don't carry a data dependency.
var laneWidth = detectLaneWidth()

func detectLaneWidth() int {
	if cpuid.CPU.Supports(cpuid.AVX2) || cpuid.CPU.Supports(cpuid.ASIMD) {
		return 8
	}
	return 4
}

// dotF32 computes the dot product of two equal-length float32 vectors
// using laneWidth-wide unrolled accumulators.
func dotF32(a, b []float32) float32 {
	n := len(a)
	if laneWidth == 8 && n >= 8 {
		return dotF32x8(a, b)
	}
	return dotF32x4(a, b)
}

func dotF32x8(a, b []float32) float32 {
	n := len(a)
	var acc0, acc1, acc2, acc3, acc4, acc5, acc6, acc7 float32
	i := 0
	for ; i+8 <= n; i += 8 {
		acc0 += a[i] * b[i]
		acc1 += a[i+1] * b[i+1]
		acc2 += a[i+2] * b[i+2]
		acc3 += a[i+3] * b[i+3]
		acc4 += a[i+4] * b[i+4]
		acc5 += a[i+5] * b[i+5]
		acc6 += a[i+6] * b[i+6]
		acc7 += a[i+7] * b[i+7]
	}
	sum := acc0 + acc1 + acc2 + acc3 + acc4 + acc5 + acc6 + acc7
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func dotF32x4(a, b []float32) float32 {
	n := len(a)
	var acc0, acc1, acc2, acc3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		acc0 += a[i] * b[i]
		acc1 += a[i+1] * b[i+1]
		acc2 += a[i+2] * b[i+2]
		acc3 += a[i+3] * b[i+3]
	}
	sum := acc0 + acc1 + acc2 + acc3
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// f16ToF32 converts one IEEE-754 binary16 value (as its raw bit pattern)
// to float32.
func f16ToF32(bits uint16) float32 {
	sign := uint32(bits>>15) & 0x1
	exp := uint32(bits>>10) & 0x1f
	frac := uint32(bits) & 0x3ff

	var f32bits uint32
	switch {
	case exp == 0 && frac == 0:
		f32bits = sign << 31
	case exp == 0x1f:
		f32bits = (sign << 31) | (0xff << 23) | (frac << 13)
	case exp == 0:
		// Subnormal half -> normalize into float32's wider exponent range.
		e := -1
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		exp32 := uint32(int32(127-15+1+e))
		f32bits = (sign << 31) | (exp32 << 23) | (frac << 13)
	default:
		exp32 := exp - 15 + 127
		f32bits = (sign << 31) | (exp32 << 23) | (frac << 13)
	}
	return math.Float32frombits(f32bits)
}

// f32ToF16 converts a float32 to its IEEE-754 binary16 bit pattern by
// truncating the mantissa (no rounding). Values too small for a normal
// half flush to signed zero; values too large, and NaN, become signed
// infinity.
func f32ToF16(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		return sign | uint16(exp<<10) | uint16(frac>>13)
	}
}

// decodeVectorF32 reads dim float32 values from a slab, converting from
// F16 if q == QuantF16.
func decodeVectorF32(slab []byte, offset uint64, dim int, q Quantization) []float32 {
	out := make([]float32, dim)
	if q == QuantF32 {
		for i := 0; i < dim; i++ {
			bits := leUint32(slab[int(offset)+i*4:])
			out[i] = math.Float32frombits(bits)
		}
		return out
	}
	for i := 0; i < dim; i++ {
		bits := leUint16(slab[int(offset)+i*2:])
		out[i] = f16ToF32(bits)
	}
	return out
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
