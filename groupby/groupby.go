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

// Package groupby implements spec §4.4 group_by: partitioning a set of
// key columns into groups of row positions, one group per distinct
// combination of key values. A single key column is hashed directly;
// two or more are first folded into one Uint64 column by
// compositekey.Reduce, grounded on original_source's groupby_many /
// groupby_many_test in groupby.rs. Unlike the original, which groups
// chunk-by-chunk and merges partial results afterward, this package
// operates on already-concatenated table-wide columns — hashindex.Build
// already parallelizes internally above its threshold, so the
// chunk-level fan-out bought the original nothing a Go caller couldn't
// get more simply by concatenating first (see DESIGN.md).
package groupby

import (
	"fmt"

	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/compositekey"
	"github.com/chunklake/chunklake/hashindex"
)

// Group is one distinct key-combination and the ascending row
// positions that share it.
type Group struct {
	// Filters maps each key column's name to its value in this group,
	// stringified in decimal form ("" for a null key), matching the
	// partition-path grammar a Dataset writes to storage.
	Filters   map[string]string
	Positions []uint32
}

// GroupBy partitions the rows indexed by cols (cols[i] holds the
// values for names[i]) into Groups. len(cols) must equal len(names)
// and be at least 1.
func GroupBy(cols []column.Array, names []string, opts hashindex.Options) ([]Group, error) {
	if len(cols) != len(names) {
		panic("groupby: cols and names must have equal length")
	}
	if len(cols) == 0 {
		panic("groupby: at least one key column is required")
	}

	if len(cols) == 1 {
		idx, err := hashindex.Build(cols[0], opts)
		if err != nil {
			return nil, err
		}
		buckets := idx.Buckets()
		groups := make([]Group, len(buckets))
		for i, b := range buckets {
			groups[i] = Group{
				Filters:   map[string]string{names[0]: b.KeyString},
				Positions: b.Positions,
			}
		}
		return groups, nil
	}

	composite, err := compositekey.Reduce(cols)
	if err != nil {
		return nil, err
	}
	idx, err := hashindex.Build(composite, opts)
	if err != nil {
		return nil, err
	}
	buckets := idx.Buckets()
	groups := make([]Group, len(buckets))
	for i, b := range buckets {
		representative := b.Positions[0]
		filters := make(map[string]string, len(names))
		for j, name := range names {
			filters[name] = RowString(cols[j], int(representative))
		}
		groups[i] = Group{Filters: filters, Positions: b.Positions}
	}
	return groups, nil
}

// RowString stringifies the value of arr at row i in decimal form, or
// "" if the value is null — the same convention hashindex.Bucket uses
// for its single-column KeyString. Exported for setops' multi-column
// key tuples, which need the identical stringification on both sides
// of a join/merge/delete.
func RowString(arr column.Array, i int) string {
	switch a := arr.(type) {
	case *column.PrimitiveArray[int8]:
		return valueString(a, i)
	case *column.PrimitiveArray[int16]:
		return valueString(a, i)
	case *column.PrimitiveArray[int32]:
		return valueString(a, i)
	case *column.PrimitiveArray[int64]:
		return valueString(a, i)
	case *column.PrimitiveArray[uint8]:
		return valueString(a, i)
	case *column.PrimitiveArray[uint16]:
		return valueString(a, i)
	case *column.PrimitiveArray[uint32]:
		return valueString(a, i)
	case *column.PrimitiveArray[uint64]:
		return valueString(a, i)
	case *column.PrimitiveArray[float32]:
		return valueString(a, i)
	case *column.PrimitiveArray[float64]:
		return valueString(a, i)
	default:
		return ""
	}
}

type valuer[T column.Primitive] interface {
	Value(i int) (T, bool)
}

func valueString[T column.Primitive](arr valuer[T], i int) string {
	v, ok := arr.Value(i)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
