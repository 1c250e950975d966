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

// Package hashindex builds the two hash-map shapes the relational
// kernels share (spec §4.2): an ordered, multi-position Index used by
// group-by and join, and a last-writer-wins SingleIndex used by merge
// and delete. Both are built in parallel above SMALL_THRESHOLD rows,
// partitioning the column into contiguous ranges, building one map per
// partition, then concatenating (never rehashing) worker buckets in
// partition order — grounded on original_source's hm.rs/hm2.rs
// hashmap_primitive_to_idxs_par and hashmaps_merge_vec.
package hashindex

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/lakeerr"
)

// SmallThreshold is the row count at or below which building proceeds
// serially on the calling goroutine (original_source hm2.rs: 10_000).
const SmallThreshold = 10000

// DefaultWorkers is the fixed partition fan-out used above
// SmallThreshold (original_source hm2.rs: workers = 24).
const DefaultWorkers = 24

// Options controls the partition width and fan-out of a parallel
// build. The zero value is not valid; use NewOptions or WithX helpers.
type Options struct {
	Threshold int
	Workers   int
}

type Option func(*Options)

func WithThreshold(n int) Option {
	return func(o *Options) { o.Threshold = n }
}

func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

func NewOptions(opts ...Option) Options {
	o := Options{Threshold: SmallThreshold, Workers: DefaultWorkers}
	for _, apply := range opts {
		apply(&o)
	}
	if o.Threshold < 1 {
		o.Threshold = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Bucket is the type-erased materialization of one hash-index group:
// every original row position that shared KeyString, in ascending
// order. Positions are relative to the array the Index was built from.
type Bucket struct {
	KeyString string
	IsNull    bool
	Positions []uint32
}

// Index is the ordered, multi-position hash index used by group-by and
// join. It is returned type-erased because its only consumers —
// group-by materialization and join probing — never need to recover
// the original Go type of the key column.
type Index interface {
	Len() int
	Buckets() []Bucket
	// Probe returns, for every row i of probe (which must share the
	// build column's data type), the (buildPos, probePos) pairs for
	// every build-side row whose key equals probe[i] — an inner-join
	// cross product. Pairs are ordered by probePos ascending, and
	// within a probePos by buildPos ascending. Unlike SQL, a null key
	// on both sides is treated as an equal match (spec Design Notes).
	Probe(probe column.Array) (buildIdxs, probeIdxs []uint32, err error)
}

// SingleIndex is the last-writer-wins hash index used by merge and
// delete: only the highest original row position per key survives.
type SingleIndex interface {
	// Absent returns, in ascending order, the positions in probe whose
	// key is NOT present in this index (spec §4.5 left_keep_idxs).
	Absent(probe column.Array, opts Options) ([]uint32, error)
}

// Build constructs the ordered Index over arr, dispatching on its
// DataType against the closed primitive set (spec §4.2). Utf8 and any
// future non-numeric type fail with UnsupportedKeyTypeError — this
// switch is the single dispatch site for the ordered-index shape.
func Build(arr column.Array, opts Options) (Index, error) {
	switch a := arr.(type) {
	case *column.PrimitiveArray[int8]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[int16]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[int32]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[int64]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[uint8]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[uint16]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[uint32]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[uint64]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[float32]:
		return buildTypedIndex(a, opts), nil
	case *column.PrimitiveArray[float64]:
		return buildTypedIndex(a, opts), nil
	default:
		return nil, lakeerr.NewUnsupportedKeyType(arr.DataType().String())
	}
}

// BuildSingle constructs the last-writer-wins SingleIndex over arr,
// using the same closed-world dispatch as Build.
func BuildSingle(arr column.Array, opts Options) (SingleIndex, error) {
	switch a := arr.(type) {
	case *column.PrimitiveArray[int8]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[int16]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[int32]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[int64]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[uint8]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[uint16]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[uint32]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[uint64]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[float32]:
		return buildTypedSingleIndex(a, opts), nil
	case *column.PrimitiveArray[float64]:
		return buildTypedSingleIndex(a, opts), nil
	default:
		return nil, lakeerr.NewUnsupportedKeyType(arr.DataType().String())
	}
}

// typedIndex is the generic ordered index backing Index.
type typedIndex[T column.Primitive] struct {
	buckets       map[T][]uint32
	nullPositions []uint32
}

func buildTypedIndexSerial[T column.Primitive](arr *column.PrimitiveArray[T], start, end int) *typedIndex[T] {
	idx := &typedIndex[T]{buckets: make(map[T][]uint32)}
	for i := start; i < end; i++ {
		v, ok := arr.Value(i)
		if !ok {
			idx.nullPositions = append(idx.nullPositions, uint32(i))
			continue
		}
		idx.buckets[v] = append(idx.buckets[v], uint32(i))
	}
	return idx
}

func mergeTypedIndices[T column.Primitive](parts []*typedIndex[T]) *typedIndex[T] {
	out := &typedIndex[T]{buckets: make(map[T][]uint32)}
	for _, p := range parts {
		for k, positions := range p.buckets {
			out.buckets[k] = append(out.buckets[k], positions...)
		}
		out.nullPositions = append(out.nullPositions, p.nullPositions...)
	}
	return out
}

func buildTypedIndex[T column.Primitive](arr *column.PrimitiveArray[T], opts Options) *typedIndex[T] {
	n := arr.Len()
	if n <= opts.Threshold || opts.Workers <= 1 {
		return buildTypedIndexSerial(arr, 0, n)
	}
	workers := opts.Workers
	if workers > n {
		workers = n
	}
	size := n / workers
	parts := make([]*typedIndex[T], workers)
	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		start := w * size
		end := start + size
		if w == workers-1 {
			end = n
		}
		eg.Go(func() error {
			parts[w] = buildTypedIndexSerial(arr, start, end)
			return nil
		})
	}
	_ = eg.Wait()
	return mergeTypedIndices(parts)
}

func (idx *typedIndex[T]) Len() int {
	n := len(idx.buckets)
	if len(idx.nullPositions) > 0 {
		n++
	}
	return n
}

func (idx *typedIndex[T]) Buckets() []Bucket {
	out := make([]Bucket, 0, idx.Len())
	for k, positions := range idx.buckets {
		sorted := append([]uint32(nil), positions...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		out = append(out, Bucket{KeyString: fmt.Sprintf("%v", k), Positions: sorted})
	}
	if len(idx.nullPositions) > 0 {
		out = append(out, Bucket{KeyString: "", IsNull: true, Positions: idx.nullPositions})
	}
	return out
}

func (idx *typedIndex[T]) Probe(probe column.Array) (buildIdxs, probeIdxs []uint32, err error) {
	parr, ok := probe.(*column.PrimitiveArray[T])
	if !ok {
		return nil, nil, lakeerr.NewKeyTypeMismatch(probeDataTypeName[T](), probe.DataType().String())
	}
	for i := 0; i < parr.Len(); i++ {
		v, valid := parr.Value(i)
		var positions []uint32
		if !valid {
			positions = idx.nullPositions
		} else {
			positions = idx.buckets[v]
		}
		for _, bpos := range positions {
			buildIdxs = append(buildIdxs, bpos)
			probeIdxs = append(probeIdxs, uint32(i))
		}
	}
	return buildIdxs, probeIdxs, nil
}

// typedSingleIndex is the generic last-writer-wins index backing
// SingleIndex.
type typedSingleIndex[T column.Primitive] struct {
	buckets map[T]uint32
	hasNull bool
	nullPos uint32
}

func buildTypedSingleIndexSerial[T column.Primitive](arr *column.PrimitiveArray[T], start, end int, dst *typedSingleIndex[T]) {
	for i := start; i < end; i++ {
		v, ok := arr.Value(i)
		if !ok {
			dst.hasNull = true
			dst.nullPos = uint32(i)
			continue
		}
		dst.buckets[v] = uint32(i)
	}
}

func buildTypedSingleIndex[T column.Primitive](arr *column.PrimitiveArray[T], opts Options) *typedSingleIndex[T] {
	n := arr.Len()
	if n <= opts.Threshold || opts.Workers <= 1 {
		out := &typedSingleIndex[T]{buckets: make(map[T]uint32)}
		buildTypedSingleIndexSerial(arr, 0, n, out)
		return out
	}
	workers := opts.Workers
	if workers > n {
		workers = n
	}
	size := n / workers
	parts := make([]*typedSingleIndex[T], workers)
	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		start := w * size
		end := start + size
		if w == workers-1 {
			end = n
		}
		eg.Go(func() error {
			parts[w] = &typedSingleIndex[T]{buckets: make(map[T]uint32)}
			buildTypedSingleIndexSerial(arr, start, end, parts[w])
			return nil
		})
	}
	_ = eg.Wait()
	out := &typedSingleIndex[T]{buckets: make(map[T]uint32)}
	for _, p := range parts {
		for k, pos := range p.buckets {
			out.buckets[k] = pos
		}
		if p.hasNull {
			out.hasNull = true
			out.nullPos = p.nullPos
		}
	}
	return out
}

func (s *typedSingleIndex[T]) absentSerial(arr *column.PrimitiveArray[T], start, end int) []uint32 {
	var out []uint32
	for i := start; i < end; i++ {
		v, ok := arr.Value(i)
		var present bool
		if !ok {
			present = s.hasNull
		} else {
			_, present = s.buckets[v]
		}
		if !present {
			out = append(out, uint32(i))
		}
	}
	return out
}

func (s *typedSingleIndex[T]) Absent(probe column.Array, opts Options) ([]uint32, error) {
	parr, ok := probe.(*column.PrimitiveArray[T])
	if !ok {
		return nil, lakeerr.NewKeyTypeMismatch(probeDataTypeName[T](), probe.DataType().String())
	}
	n := parr.Len()
	if n <= opts.Threshold || opts.Workers <= 1 {
		return s.absentSerial(parr, 0, n), nil
	}
	workers := opts.Workers
	if workers > n {
		workers = n
	}
	size := n / workers
	parts := make([][]uint32, workers)
	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		start := w * size
		end := start + size
		if w == workers-1 {
			end = n
		}
		eg.Go(func() error {
			parts[w] = s.absentSerial(parr, start, end)
			return nil
		})
	}
	_ = eg.Wait()
	var out []uint32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func probeDataTypeName[T column.Primitive]() string {
	var zero T
	arr := column.NewPrimitiveArray[T]([]T{zero}, nil)
	return arr.DataType().String()
}
