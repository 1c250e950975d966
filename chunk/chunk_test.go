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

package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklake/chunklake/column"
)

func sampleChunk() *Chunk {
	return New([]column.Array{
		column.NewPrimitiveArray[int32]([]int32{1, 2, 3, 4, 5}, nil),
		column.NewStringArray([]string{"a", "b", "c", "d", "e"}, nil),
	})
}

func TestChunkTake(t *testing.T) {
	c := sampleChunk()
	out, err := Take(c, []uint32{4, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	col0 := out.Columns[0].(*column.PrimitiveArray[int32])
	assert.Equal(t, []int32{5, 1}, col0.Values())
}

func TestChunkHeadTruncatesToMin(t *testing.T) {
	c := sampleChunk()
	assert.Equal(t, 3, Head(c, 3).Len())
	assert.Equal(t, 5, Head(c, 100).Len())
}

func TestChunkFilter(t *testing.T) {
	c := sampleChunk()
	out, err := Filter(c, func(row int) bool {
		v, _ := c.Columns[0].(*column.PrimitiveArray[int32]).Value(row)
		return v%2 == 0
	})
	require.NoError(t, err)
	col0 := out.Columns[0].(*column.PrimitiveArray[int32])
	assert.Equal(t, []int32{2, 4}, col0.Values())
}
