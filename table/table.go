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

// Package table implements Table: a named, typed schema over a
// sequence of Chunks, and the relational operations spec §4.5 defines
// on it — take, append, upsert, delete, join and group-by. Grounded on
// original_source's table.rs (Table::take/append/upsert/delete/join/
// groupby), reworked around chunk.Chunk and the hashindex/compositekey/
// groupby/setops packages instead of arrow2's Chunk<Box<dyn Array>>.
package table

import (
	"github.com/chunklake/chunklake/chunk"
	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/groupby"
	"github.com/chunklake/chunklake/hashindex"
	"github.com/chunklake/chunklake/lakeerr"
	"github.com/chunklake/chunklake/setops"
)

// Field describes one named, typed column of a Table's schema.
type Field struct {
	Name     string
	DataType column.DataType
	Nullable bool
}

// Table is an ordered list of Chunks that all conform to the same
// Fields.
type Table struct {
	Fields []Field
	Chunks []*chunk.Chunk
}

// New builds a Table, panicking if any chunk's column count or
// per-column data types disagree with fields — a schema violation at
// construction time is a programmer error, the same contract chunk.New
// applies to row-count mismatches.
func New(fields []Field, chunks []*chunk.Chunk) *Table {
	for _, c := range chunks {
		if len(c.Columns) != len(fields) {
			panic("table: chunk column count does not match fields")
		}
		for i, col := range c.Columns {
			if col.DataType() != fields[i].DataType {
				panic("table: chunk column type does not match field " + fields[i].Name)
			}
		}
	}
	return &Table{Fields: fields, Chunks: chunks}
}

// NumRows returns the total row count across every chunk.
func (t *Table) NumRows() int {
	n := 0
	for _, c := range t.Chunks {
		n += c.Len()
	}
	return n
}

// FieldNames returns the table's column names in schema order.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

func (t *Table) position(name string) (int, error) {
	for i, f := range t.Fields {
		if f.Name == name {
			return i, nil
		}
	}
	return 0, lakeerr.NewColumnNotFound(name)
}

// Column materializes the named column across every chunk, copying
// into one contiguous array (spec §4.5 table.column — chunks are not
// contiguous in memory). A single-chunk table returns that chunk's
// column as is, without copying.
func (t *Table) Column(name string) (column.Array, error) {
	pos, err := t.position(name)
	if err != nil {
		return nil, err
	}
	if len(t.Chunks) == 1 {
		return t.Chunks[0].Columns[pos], nil
	}
	arrays := make([]column.Array, len(t.Chunks))
	for i, c := range t.Chunks {
		arrays[i] = c.Columns[pos]
	}
	return column.Concat(arrays)
}

func (t *Table) resolveColumns(names []string) ([]column.Array, error) {
	cols := make([]column.Array, len(names))
	for i, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// singleChunk collapses the table to one chunk, concatenating across
// chunk boundaries only if more than one chunk is present.
func (t *Table) singleChunk() (*chunk.Chunk, error) {
	if len(t.Chunks) == 1 {
		return t.Chunks[0], nil
	}
	cols := make([]column.Array, len(t.Fields))
	for i, f := range t.Fields {
		col, err := t.Column(f.Name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return chunk.New(cols), nil
}

// Take gathers rows by position across the whole table (spec §4.5
// table.take), returning a single-chunk result.
func (t *Table) Take(indices []uint32) (*Table, error) {
	c, err := t.singleChunk()
	if err != nil {
		return nil, err
	}
	taken, err := chunk.Take(c, indices)
	if err != nil {
		return nil, err
	}
	return &Table{Fields: t.Fields, Chunks: []*chunk.Chunk{taken}}, nil
}

// Head returns the first n rows (spec §4.5 table.head).
func (t *Table) Head(n int) (*Table, error) {
	c, err := t.singleChunk()
	if err != nil {
		return nil, err
	}
	return &Table{Fields: t.Fields, Chunks: []*chunk.Chunk{chunk.Head(c, n)}}, nil
}

func sameSchema(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].DataType != b[i].DataType {
			return false
		}
	}
	return true
}

func schemaNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func checkSchema(left, right []Field) error {
	if !sameSchema(left, right) {
		return lakeerr.NewSchemaMismatch(schemaNames(left), schemaNames(right))
	}
	return nil
}

// Append concatenates other's chunks after t's, requiring identical
// schemas (spec §4.5 table.append).
func (t *Table) Append(other *Table) (*Table, error) {
	if err := checkSchema(t.Fields, other.Fields); err != nil {
		return nil, err
	}
	chunks := make([]*chunk.Chunk, 0, len(t.Chunks)+len(other.Chunks))
	chunks = append(chunks, t.Chunks...)
	chunks = append(chunks, other.Chunks...)
	return &Table{Fields: t.Fields, Chunks: chunks}, nil
}

// Upsert replaces rows of t whose key columns match a row in other,
// then appends other in full (spec §4.5 table.upsert — last-writer-wins
// on the key, append-only on the rest).
func (t *Table) Upsert(other *Table, columns []string) (*Table, error) {
	if err := checkSchema(t.Fields, other.Fields); err != nil {
		return nil, err
	}
	keepIdxs, err := t.leftKeepIndices(other, columns)
	if err != nil {
		return nil, err
	}
	kept, err := t.Take(keepIdxs)
	if err != nil {
		return nil, err
	}
	return kept.Append(other)
}

// Delete removes rows of t whose key columns match a row in other;
// other's rows are never added (spec §4.5 table.delete).
func (t *Table) Delete(other *Table, columns []string) (*Table, error) {
	if err := checkSchema(t.Fields, other.Fields); err != nil {
		return nil, err
	}
	keepIdxs, err := t.leftKeepIndices(other, columns)
	if err != nil {
		return nil, err
	}
	return t.Take(keepIdxs)
}

func (t *Table) leftKeepIndices(other *Table, columns []string) ([]uint32, error) {
	leftCols, err := t.resolveColumns(columns)
	if err != nil {
		return nil, err
	}
	rightCols, err := other.resolveColumns(columns)
	if err != nil {
		return nil, err
	}
	return setops.LeftKeepIndices(leftCols, rightCols, hashindex.NewOptions())
}

// Join performs an inner join on columns, which must be present with
// matching types in both tables. Duplicate key columns from other are
// dropped from the result; all of other's remaining columns are
// appended after t's (spec §4.5 table.join).
func (t *Table) Join(other *Table, columns []string) (*Table, error) {
	leftCols, err := t.resolveColumns(columns)
	if err != nil {
		return nil, err
	}
	rightCols, err := other.resolveColumns(columns)
	if err != nil {
		return nil, err
	}
	leftIdxs, rightIdxs, err := setops.Join(leftCols, rightCols, hashindex.NewOptions())
	if err != nil {
		return nil, err
	}
	leftTaken, err := t.Take(leftIdxs)
	if err != nil {
		return nil, err
	}
	rightTaken, err := other.Take(rightIdxs)
	if err != nil {
		return nil, err
	}

	keySet := make(map[string]bool, len(columns))
	for _, c := range columns {
		keySet[c] = true
	}

	fields := append([]Field{}, leftTaken.Fields...)
	cols := append([]column.Array{}, leftTaken.Chunks[0].Columns...)
	for i, f := range rightTaken.Fields {
		if keySet[f.Name] {
			continue
		}
		fields = append(fields, f)
		cols = append(cols, rightTaken.Chunks[0].Columns[i])
	}
	return &Table{Fields: fields, Chunks: []*chunk.Chunk{chunk.New(cols)}}, nil
}

// PartitionedTable is one group produced by GroupBy: the filter values
// that define the group and the sub-table of its member rows.
type PartitionedTable struct {
	Filters map[string]string
	Table   *Table
}

// GroupBy partitions the table by columns, returning one
// PartitionedTable per distinct combination of key values (spec §4.5
// table.groupby). Output order is unspecified.
func (t *Table) GroupBy(columns []string) ([]PartitionedTable, error) {
	cols, err := t.resolveColumns(columns)
	if err != nil {
		return nil, err
	}
	groups, err := groupby.GroupBy(cols, columns, hashindex.NewOptions())
	if err != nil {
		return nil, err
	}
	out := make([]PartitionedTable, len(groups))
	for i, g := range groups {
		sub, err := t.Take(g.Positions)
		if err != nil {
			return nil, err
		}
		out[i] = PartitionedTable{Filters: g.Filters, Table: sub}
	}
	return out, nil
}
