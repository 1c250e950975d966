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

package table

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklake/chunklake/chunk"
	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/lakeerr"
)

var accountsFields = []Field{
	{Name: "id", DataType: column.Int32},
	{Name: "balance", DataType: column.Int64},
}

func accountsTable(ids []int32, balances []int64) *Table {
	c := chunk.New([]column.Array{
		column.NewPrimitiveArray[int32](ids, nil),
		column.NewPrimitiveArray[int64](balances, nil),
	})
	return New(accountsFields, []*chunk.Chunk{c})
}

func TestTableColumnConcatenatesAcrossChunks(t *testing.T) {
	c1 := chunk.New([]column.Array{column.NewPrimitiveArray[int32]([]int32{1, 2}, nil)})
	c2 := chunk.New([]column.Array{column.NewPrimitiveArray[int32]([]int32{3}, nil)})
	tbl := New([]Field{{Name: "id", DataType: column.Int32}}, []*chunk.Chunk{c1, c2})

	col, err := tbl.Column("id")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []int32{1, 2, 3}, col.(*column.PrimitiveArray[int32]).Values())
}

func TestTableColumnNotFound(t *testing.T) {
	tbl := accountsTable([]int32{1}, []int64{10})
	_, err := tbl.Column("missing")
	require.Error(t, err)
	assert.True(t, lakeerr.IsColumnNotFound(err))
}

func TestTableAppendRejectsSchemaMismatch(t *testing.T) {
	left := accountsTable([]int32{1}, []int64{10})
	right := New([]Field{{Name: "id", DataType: column.Int32}},
		[]*chunk.Chunk{chunk.New([]column.Array{column.NewPrimitiveArray[int32]([]int32{2}, nil)})})

	_, err := left.Append(right)
	require.Error(t, err)
	assert.True(t, lakeerr.IsSchemaMismatch(err))
}

func TestTableAppend(t *testing.T) {
	left := accountsTable([]int32{1}, []int64{10})
	right := accountsTable([]int32{2}, []int64{20})

	out, err := left.Append(right)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestTableUpsertReplacesMatchedKeysAndKeepsRest(t *testing.T) {
	left := accountsTable([]int32{1, 2, 3}, []int64{10, 20, 30})
	right := accountsTable([]int32{2}, []int64{999})

	out, err := left.Upsert(right, []string{"id"})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())

	id, err := out.Column("id")
	require.NoError(t, err)
	balance, err := out.Column("balance")
	require.NoError(t, err)

	got := map[int32]int64{}
	ids := id.(*column.PrimitiveArray[int32]).Values()
	balances := balance.(*column.PrimitiveArray[int64]).Values()
	for i := range ids {
		got[ids[i]] = balances[i]
	}
	assert.Equal(t, map[int32]int64{1: 10, 2: 999, 3: 30}, got)
}

func TestTableDeleteDropsMatchedKeysOnly(t *testing.T) {
	left := accountsTable([]int32{1, 2, 3}, []int64{10, 20, 30})
	right := accountsTable([]int32{2}, []int64{0})

	out, err := left.Delete(right, []string{"id"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())

	id, err := out.Column("id")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int32{1, 3}, id.(*column.PrimitiveArray[int32]).Values())
}

func TestTableJoinDropsDuplicateKeyColumns(t *testing.T) {
	left := New([]Field{
		{Name: "id", DataType: column.Int32},
		{Name: "name", DataType: column.Int64},
	}, []*chunk.Chunk{chunk.New([]column.Array{
		column.NewPrimitiveArray[int32]([]int32{1, 2}, nil),
		column.NewPrimitiveArray[int64]([]int64{100, 200}, nil),
	})})
	right := New([]Field{
		{Name: "id", DataType: column.Int32},
		{Name: "score", DataType: column.Int64},
	}, []*chunk.Chunk{chunk.New([]column.Array{
		column.NewPrimitiveArray[int32]([]int32{2, 3}, nil),
		column.NewPrimitiveArray[int64]([]int64{55, 66}, nil),
	})})

	out, err := left.Join(right, []string{"id"})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, []string{"id", "name", "score"}, out.FieldNames())

	score, err := out.Column("score")
	require.NoError(t, err)
	assert.Equal(t, []int64{55}, score.(*column.PrimitiveArray[int64]).Values())
}

func TestTableGroupByPartitionsEveryRow(t *testing.T) {
	tbl := accountsTable([]int32{1, 1, 2}, []int64{10, 20, 30})
	groups, err := tbl.GroupBy([]string{"id"})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	sort.Slice(groups, func(i, j int) bool { return groups[i].Filters["id"] < groups[j].Filters["id"] })
	assert.Equal(t, "1", groups[0].Filters["id"])
	assert.Equal(t, 2, groups[0].Table.NumRows())
	assert.Equal(t, "2", groups[1].Filters["id"])
	assert.Equal(t, 1, groups[1].Table.NumRows())
}
