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

// Package compositekey reduces N (N >= 2) integer columns into a
// single Uint64 column suitable for hashindex.Build, so that group-by
// only ever needs to hash one column (spec §4.3). Join, merge and
// delete do not use it: setops compares multi-column keys as
// stringified tuples instead. Each column is range-shifted to be non-negative, widened to
// int64, then folded left with a multiplier sized to the range of the
// column about to be folded in (so no two distinct tuples can alias to
// the same key) — grounded on original_source's groupby_many_test
// composite-key path in groupby.rs (min_primitive / mul_scalar / add /
// max_primitive), with the multiplier corrected to look ahead at the
// next column's range rather than the running max of columns already
// folded.
//
// Unlike the original, which silently saturates on overflow, this
// reduction detects it and returns an OverflowError (spec's
// SUPPLEMENTED FEATURES: silent data corruption is not an acceptable
// failure mode for a storage engine).
package compositekey

import (
	"math/bits"

	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/lakeerr"
)

// Reduce folds columns left-to-right into a single Uint64 column. Any
// null component at row i makes the reduced key null at row i. Reduce
// panics if fewer than two columns are given — its caller (group-by)
// only ever invokes it for multi-column keys, and a single-column key
// should be hashed directly via hashindex.Build.
func Reduce(columns []column.Array) (*column.PrimitiveArray[uint64], error) {
	if len(columns) < 2 {
		panic("compositekey: Reduce requires at least two columns")
	}

	n := columns[0].Len()
	widened := make([][]int64, len(columns))
	nulls := make([]bool, n)
	for k, col := range columns {
		w, colNulls, err := widen(col)
		if err != nil {
			return nil, err
		}
		widened[k] = w
		for i := 0; i < n; i++ {
			if colNulls != nil && colNulls[i] {
				nulls[i] = true
			}
		}
	}

	c := make([]uint64, n)
	for i := 0; i < n; i++ {
		if !nulls[i] {
			c[i] = uint64(widened[0][i])
		}
	}

	for k := 1; k < len(columns); k++ {
		// The multiplier must exceed every value about to be folded
		// in, so that no two distinct (c[i], widened[k][i]) pairs can
		// ever land on the same product+sum — the range (max+1) of
		// the column being folded in, not of the columns already
		// folded.
		m, err := foldMultiplier(widened[k], nulls, k)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if nulls[i] {
				continue
			}
			product, overflow := mulOverflow(c[i], m)
			if overflow {
				return nil, lakeerr.NewOverflowError(k)
			}
			sum, overflow := addOverflow(product, uint64(widened[k][i]))
			if overflow {
				return nil, lakeerr.NewOverflowError(k)
			}
			c[i] = sum
		}
	}

	nullMask := nulls
	if !anyTrue(nullMask) {
		nullMask = nil
	}
	return column.NewPrimitiveArray[uint64](c, nullMask), nil
}

func anyTrue(mask []bool) bool {
	for _, v := range mask {
		if v {
			return true
		}
	}
	return false
}

// foldMultiplier returns one past the largest valid (already
// range-shifted, non-negative) value in values, i.e. the smallest
// multiplier that keeps every value of this column in its own
// "digit" of the running composite key. Floors at 1 so a
// zero-or-single-valued column still advances the fold instead of
// collapsing it.
func foldMultiplier(values []int64, nulls []bool, columnIndex int) (uint64, error) {
	var max uint64
	first := true
	for i, v := range values {
		if nulls[i] {
			continue
		}
		uv := uint64(v)
		if first || uv > max {
			max = uv
			first = false
		}
	}
	if max == ^uint64(0) {
		return 0, lakeerr.NewOverflowError(columnIndex)
	}
	if max == 0 {
		return 1, nil
	}
	return max + 1, nil
}

func mulOverflow(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi != 0
}

func addOverflow(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry != 0
}

// widen range-shifts arr to be non-negative (subtracting its minimum
// valid value) and casts it to int64, returning its null mask.
func widen(arr column.Array) ([]int64, []bool, error) {
	switch a := arr.(type) {
	case *column.PrimitiveArray[int8]:
		return widenSigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[int16]:
		return widenSigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[int32]:
		return widenSigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[int64]:
		return widenSigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[uint8]:
		return widenUnsigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[uint16]:
		return widenUnsigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[uint32]:
		return widenUnsigned(a.Values(), a.NullMask())
	case *column.PrimitiveArray[uint64]:
		return widenUnsigned(a.Values(), a.NullMask())
	default:
		return nil, nil, lakeerr.NewUnsupportedKeyType(arr.DataType().String())
	}
}

type signedInt interface{ ~int8 | ~int16 | ~int32 | ~int64 }
type unsignedInt interface{ ~uint8 | ~uint16 | ~uint32 | ~uint64 }

func widenSigned[T signedInt](values []T, nulls []bool) ([]int64, []bool, error) {
	min := minValidSigned(values, nulls)
	out := make([]int64, len(values))
	for i, v := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		out[i] = int64(v) - min
	}
	return out, nulls, nil
}

func widenUnsigned[T unsignedInt](values []T, nulls []bool) ([]int64, []bool, error) {
	min := minValidUnsigned(values, nulls)
	out := make([]int64, len(values))
	for i, v := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		out[i] = int64(v) - int64(min)
	}
	return out, nulls, nil
}

func minValidSigned[T signedInt](values []T, nulls []bool) int64 {
	first := true
	var min int64
	for i, v := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		iv := int64(v)
		if first || iv < min {
			min = iv
			first = false
		}
	}
	return min
}

func minValidUnsigned[T unsignedInt](values []T, nulls []bool) T {
	first := true
	var min T
	for i, v := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		if first || v < min {
			min = v
			first = false
		}
	}
	return min
}
