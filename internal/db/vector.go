package db

import (
	"encoding/binary"
	"math"
)

// VectorToBytes serializes a []float32 into the little-endian binary string
// stored in the hash vector field. Must match BytesToVector exactly; the
// ingestion side writes with the same layout.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// BytesToVector deserializes a binary string to []float32. Returns nil for
// malformed input (length not a multiple of 4).
func BytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
