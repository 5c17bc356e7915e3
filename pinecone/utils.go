/*
 * Copyright 2025 CMC Lens Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pinecone

import (
	"encoding/json"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

func f64To32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, f := range f64 {
		f32[i] = float32(f)
	}

	return f32
}

func f32To64(f32 []float32) []float64 {
	f64 := make([]float64, len(f32))
	for i, f := range f32 {
		f64[i] = float64(f)
	}

	return f64
}

func chunk[T any](slice []T, size int) [][]T {
	if size <= 0 {
		return nil
	}

	var chunks [][]T
	for size < len(slice) {
		slice, chunks = slice[size:], append(chunks, slice[0:size:size])
	}

	if len(slice) > 0 {
		chunks = append(chunks, slice)
	}

	return chunks
}

func iter[T, D any](src []T, fn func(T) D) []D {
	resp := make([]D, len(src))
	for i := range src {
		resp[i] = fn(src[i])
	}

	return resp
}

func toPineconeSparseVector(sparse map[int]float64) *pinecone.SparseValues {
	if sparse == nil {
		return nil
	}

	sv := &pinecone.SparseValues{
		Indices: make([]uint32, 0, len(sparse)),
		Values:  make([]float32, 0, len(sparse)),
	}

	for indices, vector := range sparse {
		sv.Indices = append(sv.Indices, uint32(indices))
		sv.Values = append(sv.Values, float32(vector))
	}

	return sv
}

func fromPineconeSparseVector(values *pinecone.SparseValues) map[int]float64 {
	if values == nil {
		return nil
	}

	sparse := make(map[int]float64)
	for i := range values.Indices {
		indices := values.Indices[i]
		vector := values.Values[i]

		sparse[int(indices)] = float64(vector)
	}

	return sparse
}

func marshalStringNoErr(v any) string {
	if v == nil {
		return ""
	}

	b, _ := json.Marshal(v)

	return string(b)
}
