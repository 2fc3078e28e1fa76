package kb

import (
	"context"
	"math"

	chromem "github.com/philippgille/chromem-go"
)

// LocalEmbeddingFunc returns a deterministic lexical embedding function
// for running without an embedding endpoint. Character positions hash
// into vector slots, so texts sharing words land near each other. It is
// far weaker than a learned embedding; configure one for real use.
func LocalEmbeddingFunc(dims int) chromem.EmbeddingFunc {
	if dims <= 0 {
		dims = 256
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		for i, ch := range text {
			idx := (int(ch) + i) % dims
			vec[idx] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for i := range vec {
				vec[i] = float32(float64(vec[i]) / norm)
			}
		}
		return vec, nil
	}
}
