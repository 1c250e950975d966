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

package hashindex

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/lakeerr"
)

func bucketByKey(buckets []Bucket, key string) (Bucket, bool) {
	for _, b := range buckets {
		if b.KeyString == key && !b.IsNull {
			return b, true
		}
	}
	return Bucket{}, false
}

func TestBuildIndexGroupsEveryPositionSerial(t *testing.T) {
	arr := column.NewPrimitiveArray[int32]([]int32{1, 2, 1, 3, 2, 1}, nil)
	idx, err := Build(arr, NewOptions())
	require.NoError(t, err)

	b, ok := bucketByKey(idx.Buckets(), "1")
	require.True(t, ok)
	assert.Equal(t, []uint32{0, 2, 5}, b.Positions)
}

func TestBuildIndexCompletenessParallel(t *testing.T) {
	n := 50000
	values := make([]int32, n)
	for i := range values {
		values[i] = int32(i % 37)
	}
	arr := column.NewPrimitiveArray[int32](values, nil)
	idx, err := Build(arr, NewOptions(WithThreshold(1000), WithWorkers(8)))
	require.NoError(t, err)

	seen := make(map[uint32]bool, n)
	for _, b := range idx.Buckets() {
		prev := -1
		for _, pos := range b.Positions {
			assert.Greater(t, int(pos), prev, "positions within a bucket must be ascending")
			prev = int(pos)
			seen[pos] = true
		}
	}
	assert.Len(t, seen, n, "every row must appear in exactly one bucket")
}

func TestBuildIndexNullsGroupTogether(t *testing.T) {
	arr := column.NewPrimitiveArray[int64]([]int64{1, 0, 2}, []bool{false, true, false})
	idx, err := Build(arr, NewOptions())
	require.NoError(t, err)

	var nullBucket *Bucket
	for _, b := range idx.Buckets() {
		if b.IsNull {
			bCopy := b
			nullBucket = &bCopy
		}
	}
	require.NotNil(t, nullBucket)
	assert.Equal(t, []uint32{1}, nullBucket.Positions)
}

func TestBuildRejectsUtf8(t *testing.T) {
	arr := column.NewStringArray([]string{"a", "b"}, nil)
	_, err := Build(arr, NewOptions())
	require.Error(t, err)
	assert.True(t, lakeerr.IsUnsupportedKeyType(err))
}

func TestIndexProbeInnerJoinCrossProduct(t *testing.T) {
	build := column.NewPrimitiveArray[int32]([]int32{5, 7, 5}, nil)
	idx, err := Build(build, NewOptions())
	require.NoError(t, err)

	probe := column.NewPrimitiveArray[int32]([]int32{7, 1, 5}, nil)
	buildIdxs, probeIdxs, err := idx.Probe(probe)
	require.NoError(t, err)

	type pair struct{ b, p uint32 }
	got := make([]pair, len(buildIdxs))
	for i := range buildIdxs {
		got[i] = pair{buildIdxs[i], probeIdxs[i]}
	}
	sort.Slice(got, func(i, j int) bool {
		if got[i].p != got[j].p {
			return got[i].p < got[j].p
		}
		return got[i].b < got[j].b
	})
	assert.Equal(t, []pair{{1, 0}, {0, 2}, {2, 2}}, got)
}

func TestIndexProbeTypeMismatch(t *testing.T) {
	build := column.NewPrimitiveArray[int32]([]int32{1}, nil)
	idx, err := Build(build, NewOptions())
	require.NoError(t, err)

	probe := column.NewPrimitiveArray[int64]([]int64{1}, nil)
	_, _, err = idx.Probe(probe)
	require.Error(t, err)
	assert.True(t, lakeerr.IsKeyTypeMismatch(err))
}

func TestSingleIndexDuplicateKeysStayPresent(t *testing.T) {
	arr := column.NewPrimitiveArray[int32]([]int32{1, 1, 1}, nil)
	single, err := BuildSingle(arr, NewOptions())
	require.NoError(t, err)

	absent, err := single.Absent(column.NewPrimitiveArray[int32]([]int32{1, 2}, nil), NewOptions())
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, absent)
}

func TestSingleIndexAbsentParallel(t *testing.T) {
	n := 40000
	rightValues := make([]int32, 0, n/2)
	for i := 0; i < n; i += 2 {
		rightValues = append(rightValues, int32(i))
	}
	right := column.NewPrimitiveArray[int32](rightValues, nil)
	single, err := BuildSingle(right, NewOptions(WithThreshold(500), WithWorkers(8)))
	require.NoError(t, err)

	leftValues := make([]int32, n)
	for i := range leftValues {
		leftValues[i] = int32(i)
	}
	left := column.NewPrimitiveArray[int32](leftValues, nil)
	absent, err := single.Absent(left, NewOptions(WithThreshold(500), WithWorkers(8)))
	require.NoError(t, err)

	assert.Len(t, absent, n/2)
	for i, pos := range absent {
		assert.Equal(t, uint32(i*2+1), pos)
	}
}

func TestSingleIndexNullMembership(t *testing.T) {
	right := column.NewPrimitiveArray[int32]([]int32{0, 0}, []bool{true, false})
	single, err := BuildSingle(right, NewOptions())
	require.NoError(t, err)

	probe := column.NewPrimitiveArray[int32]([]int32{0, 9}, []bool{true, false})
	absent, err := single.Absent(probe, NewOptions())
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, absent)
}
