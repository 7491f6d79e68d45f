package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector converts a float32 slice to a little-endian binary blob.
func EncodeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(v))
	}
	return blob
}

// DecodeVector converts a binary blob produced by EncodeVector back to a float32 slice.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vector, nil
}

// CosineDistance returns 1 - cosine similarity, in [0, 2].
// ok is false when the vectors differ in length, are empty, or either has zero norm.
func CosineDistance(a, b []float32) (distance float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push |cos| slightly past 1.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return 1 - cos, true
}

// Similarity computes cosine similarity between two vectors.
// It returns 0 for vectors that cannot be compared.
func Similarity(a, b []float32) float64 {
	d, ok := CosineDistance(a, b)
	if !ok {
		return 0
	}
	return 1 - d
}
