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

// Package column implements ColumnArray: a typed, immutable, sliceable
// primitive column with an optional null mask. Slicing is zero-copy —
// a Go slice re-slice already shares its backing array with its
// parent, which is the shared-ownership primitive the kernel needs;
// no reference-counted wrapper is required on top of it.
package column

import "github.com/chunklake/chunklake/lakeerr"

// DataType is the closed set of element types a ColumnArray may carry.
type DataType int

const (
	Int8 DataType = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Utf8
)

func (d DataType) String() string {
	switch d {
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Uint8:
		return "Uint8"
	case Uint16:
		return "Uint16"
	case Uint32:
		return "Uint32"
	case Uint64:
		return "Uint64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Utf8:
		return "Utf8"
	default:
		return "Unknown"
	}
}

// IsPrimitiveNumeric reports whether d is one of the numeric types
// eligible as a hash-index key column (Utf8 is not). Composite keys
// accept only the integer types; Float32 and Float64 are rejected there.
func (d DataType) IsPrimitiveNumeric() bool {
	return d != Utf8
}

// Array is the common interface every column type satisfies. Two
// operations — Take and Slice — suffice for every relational kernel
// in this module (spec §4.1).
type Array interface {
	Len() int
	DataType() DataType
	// Slice returns a zero-copy view; offset+length must not exceed Len().
	Slice(offset, length int) Array
	// NullMask returns a validity mask of length Len(); true means null.
	// A nil return means "no nulls", equivalent to an all-false mask of
	// the same length (the Arrow convention of omitting the validity
	// buffer when it would be all-valid).
	NullMask() []bool
	// Take gathers by index: out[i] = in[indices[i]], propagating nulls.
	Take(indices []uint32) (Array, error)
}

// Primitive is the closed set of numeric element types ColumnArray
// supports outside of Utf8.
type Primitive interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func dataTypeFor[T Primitive]() DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("column: unreachable data type")
	}
}

// PrimitiveArray is the concrete, generic ColumnArray for every
// numeric DataType.
type PrimitiveArray[T Primitive] struct {
	values []T
	nulls  []bool
}

// NewPrimitiveArray builds a column from values and an optional null
// mask. nulls may be nil (no nulls) or must satisfy len(nulls) ==
// len(values).
func NewPrimitiveArray[T Primitive](values []T, nulls []bool) *PrimitiveArray[T] {
	if nulls != nil && len(nulls) != len(values) {
		panic("column: null_mask.len() must equal values.len()")
	}
	return &PrimitiveArray[T]{values: values, nulls: nulls}
}

func (a *PrimitiveArray[T]) Len() int { return len(a.values) }

func (a *PrimitiveArray[T]) DataType() DataType { return dataTypeFor[T]() }

func (a *PrimitiveArray[T]) Slice(offset, length int) Array {
	if offset < 0 || length < 0 || offset+length > len(a.values) {
		panic("column: slice out of bounds")
	}
	out := &PrimitiveArray[T]{values: a.values[offset : offset+length]}
	if a.nulls != nil {
		out.nulls = a.nulls[offset : offset+length]
	}
	return out
}

func (a *PrimitiveArray[T]) NullMask() []bool { return a.nulls }

// Values returns the underlying value slice (shared storage; do not mutate).
func (a *PrimitiveArray[T]) Values() []T { return a.values }

// Value returns the value at i and whether it is non-null.
func (a *PrimitiveArray[T]) Value(i int) (T, bool) {
	if a.nulls != nil && a.nulls[i] {
		var zero T
		return zero, false
	}
	return a.values[i], true
}

func (a *PrimitiveArray[T]) Take(indices []uint32) (Array, error) {
	values := make([]T, len(indices))
	var nulls []bool
	for i, idx := range indices {
		if int(idx) >= len(a.values) {
			return nil, lakeerr.NewIndexOutOfRange(idx, len(a.values))
		}
		values[i] = a.values[idx]
		if a.nulls != nil && a.nulls[idx] {
			if nulls == nil {
				nulls = make([]bool, len(indices))
			}
			nulls[i] = true
		}
	}
	return &PrimitiveArray[T]{values: values, nulls: nulls}, nil
}

// StringArray is the Utf8 ColumnArray. It is never used as a hash-index
// or composite-key column (spec Non-goals: no variable-length string
// keys in hash operations).
type StringArray struct {
	values []string
	nulls  []bool
}

func NewStringArray(values []string, nulls []bool) *StringArray {
	if nulls != nil && len(nulls) != len(values) {
		panic("column: null_mask.len() must equal values.len()")
	}
	return &StringArray{values: values, nulls: nulls}
}

func (a *StringArray) Len() int          { return len(a.values) }
func (a *StringArray) DataType() DataType { return Utf8 }

func (a *StringArray) Slice(offset, length int) Array {
	if offset < 0 || length < 0 || offset+length > len(a.values) {
		panic("column: slice out of bounds")
	}
	out := &StringArray{values: a.values[offset : offset+length]}
	if a.nulls != nil {
		out.nulls = a.nulls[offset : offset+length]
	}
	return out
}

func (a *StringArray) NullMask() []bool { return a.nulls }
func (a *StringArray) Values() []string { return a.values }

func (a *StringArray) Value(i int) (string, bool) {
	if a.nulls != nil && a.nulls[i] {
		return "", false
	}
	return a.values[i], true
}

func (a *StringArray) Take(indices []uint32) (Array, error) {
	values := make([]string, len(indices))
	var nulls []bool
	for i, idx := range indices {
		if int(idx) >= len(a.values) {
			return nil, lakeerr.NewIndexOutOfRange(idx, len(a.values))
		}
		values[i] = a.values[idx]
		if a.nulls != nil && a.nulls[idx] {
			if nulls == nil {
				nulls = make([]bool, len(indices))
			}
			nulls[i] = true
		}
	}
	return &StringArray{values: values, nulls: nulls}, nil
}

// Take is the package-level gather-by-index primitive (spec §4.1):
// Take(column, indices) -> column. It delegates to the column's own
// Take method, keeping the dispatch inside the concrete type rather
// than a switch at every call site.
func Take(arr Array, indices []uint32) (Array, error) {
	return arr.Take(indices)
}

// Slice is the package-level zero-copy view primitive (spec §4.1).
func Slice(arr Array, offset, length int) Array {
	return arr.Slice(offset, length)
}

// Concat concatenates same-typed arrays into one, copying their
// values into a freshly allocated backing array (unlike Slice, this
// cannot be zero-copy: the inputs are not contiguous in memory). It
// backs Table.Column's cross-chunk materialization.
func Concat(arrays []Array) (Array, error) {
	if len(arrays) == 0 {
		panic("column: Concat requires at least one array")
	}
	switch arrays[0].(type) {
	case *PrimitiveArray[int8]:
		return concatPrimitive[int8](arrays)
	case *PrimitiveArray[int16]:
		return concatPrimitive[int16](arrays)
	case *PrimitiveArray[int32]:
		return concatPrimitive[int32](arrays)
	case *PrimitiveArray[int64]:
		return concatPrimitive[int64](arrays)
	case *PrimitiveArray[uint8]:
		return concatPrimitive[uint8](arrays)
	case *PrimitiveArray[uint16]:
		return concatPrimitive[uint16](arrays)
	case *PrimitiveArray[uint32]:
		return concatPrimitive[uint32](arrays)
	case *PrimitiveArray[uint64]:
		return concatPrimitive[uint64](arrays)
	case *PrimitiveArray[float32]:
		return concatPrimitive[float32](arrays)
	case *PrimitiveArray[float64]:
		return concatPrimitive[float64](arrays)
	case *StringArray:
		return concatStrings(arrays)
	default:
		return nil, lakeerr.NewUnsupportedKeyType(arrays[0].DataType().String())
	}
}

func concatPrimitive[T Primitive](arrays []Array) (Array, error) {
	total := 0
	for _, a := range arrays {
		total += a.Len()
	}
	values := make([]T, 0, total)
	var nulls []bool
	offset := 0
	for _, a := range arrays {
		pa, ok := a.(*PrimitiveArray[T])
		if !ok {
			return nil, lakeerr.NewSchemaMismatch([]string{arrays[0].DataType().String()}, []string{a.DataType().String()})
		}
		values = append(values, pa.values...)
		if pa.nulls != nil {
			if nulls == nil {
				nulls = make([]bool, offset, total)
			}
			nulls = append(nulls, pa.nulls...)
		} else if nulls != nil {
			nulls = append(nulls, make([]bool, pa.Len())...)
		}
		offset += pa.Len()
	}
	return &PrimitiveArray[T]{values: values, nulls: nulls}, nil
}

func concatStrings(arrays []Array) (Array, error) {
	total := 0
	for _, a := range arrays {
		total += a.Len()
	}
	values := make([]string, 0, total)
	var nulls []bool
	offset := 0
	for _, a := range arrays {
		sa, ok := a.(*StringArray)
		if !ok {
			return nil, lakeerr.NewSchemaMismatch([]string{Utf8.String()}, []string{a.DataType().String()})
		}
		values = append(values, sa.values...)
		if sa.nulls != nil {
			if nulls == nil {
				nulls = make([]bool, offset, total)
			}
			nulls = append(nulls, sa.nulls...)
		} else if nulls != nil {
			nulls = append(nulls, make([]bool, sa.Len())...)
		}
		offset += sa.Len()
	}
	return &StringArray{values: values, nulls: nulls}, nil
}
