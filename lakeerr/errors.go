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

// Package lakeerr defines the typed error taxonomy shared by every
// relational kernel: schema checks, hash-key dispatch, take bounds,
// external I/O, and dataset manifest parsing.
package lakeerr

import "fmt"

// SchemaMismatchError is returned when two tables' field lists disagree
// at append, upsert, delete or join.
type SchemaMismatchError struct {
	Left  []string
	Right []string
}

func NewSchemaMismatch(left, right []string) error {
	return &SchemaMismatchError{Left: left, Right: right}
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: left fields %v, right fields %v", e.Left, e.Right)
}

func IsSchemaMismatch(err error) bool {
	_, ok := err.(*SchemaMismatchError)
	return ok
}

// UnsupportedKeyTypeError is returned when a group/join/merge/delete
// column has a data type outside the supported primitive set.
type UnsupportedKeyTypeError struct {
	DataType string
}

func NewUnsupportedKeyType(dataType string) error {
	return &UnsupportedKeyTypeError{DataType: dataType}
}

func (e *UnsupportedKeyTypeError) Error() string {
	return fmt.Sprintf("%s is not implemented for hashing", e.DataType)
}

func IsUnsupportedKeyType(err error) bool {
	_, ok := err.(*UnsupportedKeyTypeError)
	return ok
}

// KeyTypeMismatchError is returned when a join/merge/delete's left and
// right key columns disagree in data type.
type KeyTypeMismatchError struct {
	Left  string
	Right string
}

func NewKeyTypeMismatch(left, right string) error {
	return &KeyTypeMismatchError{Left: left, Right: right}
}

func (e *KeyTypeMismatchError) Error() string {
	return fmt.Sprintf("key type mismatch: left %s, right %s", e.Left, e.Right)
}

func IsKeyTypeMismatch(err error) bool {
	_, ok := err.(*KeyTypeMismatchError)
	return ok
}

// ColumnNotFoundError is returned when a named column is absent from a
// table's field list.
type ColumnNotFoundError struct {
	Name string
}

func NewColumnNotFound(name string) error {
	return &ColumnNotFoundError{Name: name}
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %s", e.Name)
}

func IsColumnNotFound(err error) bool {
	_, ok := err.(*ColumnNotFoundError)
	return ok
}

// IndexOutOfRangeError is returned when a take index exceeds a column's
// length.
type IndexOutOfRangeError struct {
	Index  uint32
	Length int
}

func NewIndexOutOfRange(index uint32, length int) error {
	return &IndexOutOfRangeError{Index: index, Length: length}
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("take index %d out of range for column of length %d", e.Index, e.Length)
}

func IsIndexOutOfRange(err error) bool {
	_, ok := err.(*IndexOutOfRangeError)
	return ok
}

// IoError wraps an error propagated from the external reader/writer.
type IoError struct {
	Path string
	Err  error
}

func NewIoError(path string, err error) error {
	return &IoError{Path: path, Err: err}
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error at %s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

func IsIoError(err error) bool {
	_, ok := err.(*IoError)
	return ok
}

// ManifestError is returned when a dataset manifest is missing,
// unparseable, or semantically incomplete.
type ManifestError struct {
	Root   string
	Reason string
}

func NewManifestError(root, reason string) error {
	return &ManifestError{Root: root, Reason: reason}
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest error at %s: %s", e.Root, e.Reason)
}

func IsManifestError(err error) bool {
	_, ok := err.(*ManifestError)
	return ok
}

// OverflowError is returned when a composite-key reduction would
// exceed u64 range.
type OverflowError struct {
	ColumnIndex int
}

func NewOverflowError(columnIndex int) error {
	return &OverflowError{ColumnIndex: columnIndex}
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("composite key reduction overflowed u64 at column %d", e.ColumnIndex)
}

func IsOverflowError(err error) bool {
	_, ok := err.(*OverflowError)
	return ok
}
