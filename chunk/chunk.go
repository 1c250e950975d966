// Copyright 2024 Chunklake Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chunk implements Chunk: a row-aligned tuple of ColumnArrays
// of equal length, and the take/head/filter primitives the relational
// kernels apply to it (spec §4.1, grounded on original_source's
// chunks.rs and filter.rs).
package chunk

import (
	"github.com/chunklake/chunklake/column"
)

// Chunk is an ordered tuple of columns that all share the same length.
type Chunk struct {
	Columns []column.Array
}

// New builds a Chunk, panicking if the columns disagree on length —
// the invariant is a programmer error, not a recoverable one, since a
// Chunk is only ever built by the relational kernels themselves.
func New(columns []column.Array) *Chunk {
	if len(columns) > 0 {
		n := columns[0].Len()
		for _, c := range columns[1:] {
			if c.Len() != n {
				panic("chunk: columns must share the same length")
			}
		}
	}
	return &Chunk{Columns: columns}
}

// Len returns the chunk's row count.
func (c *Chunk) Len() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return c.Columns[0].Len()
}

// Take applies column.Take to every column, preserving column order
// and types (spec §4.1 chunk_take).
func Take(c *Chunk, indices []uint32) (*Chunk, error) {
	out := make([]column.Array, len(c.Columns))
	for i, col := range c.Columns {
		taken, err := column.Take(col, indices)
		if err != nil {
			return nil, err
		}
		out[i] = taken
	}
	return &Chunk{Columns: out}, nil
}

// Head slices every column to min(chunk.Len(), n) (spec §4.1 chunk_head).
func Head(c *Chunk, n int) *Chunk {
	length := c.Len()
	if n < length {
		length = n
	}
	out := make([]column.Array, len(c.Columns))
	for i, col := range c.Columns {
		out[i] = column.Slice(col, 0, length)
	}
	return &Chunk{Columns: out}
}

// Predicate is a row-level boolean test: Predicate(i) reports whether
// row i survives the filter.
type Predicate func(row int) bool

// Filter keeps only the rows for which keep returns true, built on top
// of Take the same way original_source's filter.rs composes a boolean
// mask into a gather. It is a supplement to spec.md's named modules
// (not itself one of them), kept self-contained and Chunk-scoped.
func Filter(c *Chunk, keep Predicate) (*Chunk, error) {
	indices := make([]uint32, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if keep(i) {
			indices = append(indices, uint32(i))
		}
	}
	return Take(c, indices)
}
