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

// Package setops implements the two-table primitives spec §4.5 builds
// on: Join (inner join, build-on-smaller-side) and LeftKeepIndices,
// the shared core of merge/upsert and delete — "which left rows have
// no matching key on the right". Grounded on original_source's
// join.rs join_arrays (smaller-side build + probe) and merge.rs
// merge_arrays (partitioned absence filter).
//
// A single key column routes through hashindex, the same typed,
// parallel path group-by uses. Two or more key columns cannot use
// compositekey.Reduce here: that reduction's range-shift is only
// consistent within one table's own min/max, and comparing two
// independently-shifted sides would silently produce wrong matches.
// Instead each row's tuple of key values is stringified into one
// opaque key (compositeRowKey) so both sides compare on identical
// terms regardless of their individual value ranges.
package setops

import (
	"strings"

	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/groupby"
	"github.com/chunklake/chunklake/hashindex"
	"github.com/chunklake/chunklake/lakeerr"
)

func validateColumns(left, right []column.Array) {
	if len(left) != len(right) || len(left) == 0 {
		panic("setops: left and right must supply the same non-zero number of key columns")
	}
}

func isNullAt(arr column.Array, i int) bool {
	mask := arr.NullMask()
	return mask != nil && mask[i]
}

// compositeRowKey stringifies the tuple (cols[0][i], cols[1][i], ...)
// into one opaque key, using a field separator and an explicit null
// sentinel so no numeric value can collide with a null component.
func compositeRowKey(cols []column.Array, i int) string {
	var b strings.Builder
	for _, c := range cols {
		if isNullAt(c, i) {
			b.WriteString("\x00N")
		} else {
			b.WriteString(groupby.RowString(c, i))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

func checkTypesMatch(left, right []column.Array) error {
	for i := range left {
		if left[i].DataType() != right[i].DataType() {
			return lakeerr.NewKeyTypeMismatch(left[i].DataType().String(), right[i].DataType().String())
		}
	}
	return nil
}

// Join performs an inner join over one or more key columns, returning
// matched (leftIdx, rightIdx) position pairs ordered by leftIdx, then
// by rightIdx within a tie. A null key on both sides is treated as a
// match, per this engine's group-by/merge null semantics.
func Join(left, right []column.Array, opts hashindex.Options) (leftIdxs, rightIdxs []uint32, err error) {
	validateColumns(left, right)
	if err := checkTypesMatch(left, right); err != nil {
		return nil, nil, err
	}
	if len(left) == 1 {
		return joinSingle(left[0], right[0], opts)
	}
	return joinComposite(left, right, opts)
}

func joinSingle(left, right column.Array, opts hashindex.Options) (leftIdxs, rightIdxs []uint32, err error) {
	if left.Len() <= right.Len() {
		idx, err := hashindex.Build(left, opts)
		if err != nil {
			return nil, nil, err
		}
		buildIdxs, probeIdxs, err := idx.Probe(right)
		if err != nil {
			return nil, nil, err
		}
		return sortJoinPairs(buildIdxs, probeIdxs)
	}
	idx, err := hashindex.Build(right, opts)
	if err != nil {
		return nil, nil, err
	}
	buildIdxs, probeIdxs, err := idx.Probe(left)
	if err != nil {
		return nil, nil, err
	}
	return sortJoinPairs(probeIdxs, buildIdxs)
}

func joinComposite(left, right []column.Array, opts hashindex.Options) (leftIdxs, rightIdxs []uint32, err error) {
	buildIsLeft := left[0].Len() <= right[0].Len()
	buildCols, probeCols := right, left
	if buildIsLeft {
		buildCols, probeCols = left, right
	}

	buildLen := buildCols[0].Len()
	buildMap := make(map[string][]uint32, buildLen)
	for i := 0; i < buildLen; i++ {
		key := compositeRowKey(buildCols, i)
		buildMap[key] = append(buildMap[key], uint32(i))
	}

	probeLen := probeCols[0].Len()
	var buildIdxs, probeIdxs []uint32
	for i := 0; i < probeLen; i++ {
		key := compositeRowKey(probeCols, i)
		for _, bp := range buildMap[key] {
			buildIdxs = append(buildIdxs, bp)
			probeIdxs = append(probeIdxs, uint32(i))
		}
	}

	if buildIsLeft {
		return sortJoinPairs(buildIdxs, probeIdxs)
	}
	return sortJoinPairs(probeIdxs, buildIdxs)
}

// sortJoinPairs orders (leftIdxs[i], rightIdxs[i]) pairs by leftIdx
// ascending, then rightIdx ascending, using an explicit index permutation
// rather than sort.Slice over the pairs directly so both slices move
// together.
func sortJoinPairs(leftIdxs, rightIdxs []uint32) ([]uint32, []uint32, error) {
	n := len(leftIdxs)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	insertionSortPerm(perm, func(a, b int) bool {
		if leftIdxs[a] != leftIdxs[b] {
			return leftIdxs[a] < leftIdxs[b]
		}
		return rightIdxs[a] < rightIdxs[b]
	})
	sortedLeft := make([]uint32, n)
	sortedRight := make([]uint32, n)
	for i, p := range perm {
		sortedLeft[i] = leftIdxs[p]
		sortedRight[i] = rightIdxs[p]
	}
	return sortedLeft, sortedRight, nil
}

// insertionSortPerm sorts perm in place by less, a simple stable sort
// sized for join fan-out (typically tens to a few thousand matches per
// probe row), avoiding an allocation-heavy sort.Interface wrapper.
func insertionSortPerm(perm []int, less func(a, b int) bool) {
	for i := 1; i < len(perm); i++ {
		for j := i; j > 0 && less(perm[j], perm[j-1]); j-- {
			perm[j], perm[j-1] = perm[j-1], perm[j]
		}
	}
}

// LeftKeepIndices returns, in ascending order, the positions of left
// whose key tuple has no match in right — the shared computation
// behind merge/upsert (append right afterward) and delete (discard
// right entirely), per spec §4.5's left_keep_idxs.
func LeftKeepIndices(left, right []column.Array, opts hashindex.Options) ([]uint32, error) {
	validateColumns(left, right)
	if err := checkTypesMatch(left, right); err != nil {
		return nil, err
	}
	if len(left) == 1 {
		single, err := hashindex.BuildSingle(right[0], opts)
		if err != nil {
			return nil, err
		}
		return single.Absent(left[0], opts)
	}
	return leftKeepIndicesComposite(left, right)
}

func leftKeepIndicesComposite(left, right []column.Array) ([]uint32, error) {
	rightLen := right[0].Len()
	rightKeys := make(map[string]struct{}, rightLen)
	for i := 0; i < rightLen; i++ {
		rightKeys[compositeRowKey(right, i)] = struct{}{}
	}

	leftLen := left[0].Len()
	var keep []uint32
	for i := 0; i < leftLen; i++ {
		if _, present := rightKeys[compositeRowKey(left, i)]; !present {
			keep = append(keep, uint32(i))
		}
	}
	return keep, nil
}
