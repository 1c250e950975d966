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

package groupby

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/hashindex"
)

func TestGroupBySingleColumn(t *testing.T) {
	region := column.NewPrimitiveArray[int32]([]int32{1, 2, 1, 1, 2}, nil)

	groups, err := GroupBy([]column.Array{region}, []string{"region"}, hashindex.NewOptions())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	sort.Slice(groups, func(i, j int) bool { return groups[i].Filters["region"] < groups[j].Filters["region"] })
	assert.Equal(t, "1", groups[0].Filters["region"])
	assert.Equal(t, []uint32{0, 2, 3}, groups[0].Positions)
	assert.Equal(t, "2", groups[1].Filters["region"])
	assert.Equal(t, []uint32{1, 4}, groups[1].Positions)
}

func TestGroupByCompositeColumns(t *testing.T) {
	region := column.NewPrimitiveArray[int32]([]int32{1, 1, 2, 2}, nil)
	bucket := column.NewPrimitiveArray[int32]([]int32{10, 20, 10, 10}, nil)

	groups, err := GroupBy([]column.Array{region, bucket}, []string{"region", "bucket"}, hashindex.NewOptions())
	require.NoError(t, err)
	require.Len(t, groups, 3)

	total := 0
	for _, g := range groups {
		total += len(g.Positions)
		assert.Contains(t, g.Filters, "region")
		assert.Contains(t, g.Filters, "bucket")
	}
	assert.Equal(t, 4, total)
}

func TestGroupByEveryRowAssignedExactlyOnce(t *testing.T) {
	a := column.NewPrimitiveArray[int64]([]int64{1, 2, 3, 1, 2, 3, 1}, nil)
	groups, err := GroupBy([]column.Array{a}, []string{"a"}, hashindex.NewOptions())
	require.NoError(t, err)

	seen := map[uint32]bool{}
	for _, g := range groups {
		for _, pos := range g.Positions {
			seen[pos] = true
		}
	}
	assert.Len(t, seen, 7)
}
