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

package ioformat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklake/chunklake/chunk"
	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/table"
)

var sampleFields = []table.Field{
	{Name: "id", DataType: column.Int32},
	{Name: "amount", DataType: column.Float64, Nullable: true},
	{Name: "label", DataType: column.Utf8},
}

func sampleTable() *table.Table {
	c := chunk.New([]column.Array{
		column.NewPrimitiveArray[int32]([]int32{1, 2, 3}, nil),
		column.NewPrimitiveArray[float64]([]float64{1.5, 0, 3.25}, []bool{false, true, false}),
		column.NewStringArray([]string{"a", "b", "c"}, nil),
	})
	return table.New(sampleFields, []*chunk.Chunk{c})
}

func TestParquetWriteReadRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionSnappy, CompressionLz4Raw} {
		path := filepath.Join(t.TempDir(), "part-0000.parquet")
		var p Parquet
		require.NoError(t, p.Write(path, sampleFields, sampleTable(), c))

		out, err := p.Read(path, sampleFields, c)
		require.NoError(t, err)
		require.Equal(t, 3, out.NumRows())

		id, err := out.Column("id")
		require.NoError(t, err)
		assert.Equal(t, []int32{1, 2, 3}, id.(*column.PrimitiveArray[int32]).Values())

		label, err := out.Column("label")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, label.(*column.StringArray).Values())

		amount, err := out.Column("amount")
		require.NoError(t, err)
		amountArr := amount.(*column.PrimitiveArray[float64])
		require.NotNil(t, amountArr.NullMask())
		assert.True(t, amountArr.NullMask()[1])
	}
}
