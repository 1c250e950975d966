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

// Package ioformat defines the external read(path) -> Table / write(path,
// schema, table) boundary spec §6 describes, plus the reference Parquet
// adapter (grounded on xitongsys/parquet-go's JSON-schema writer, the
// dynamic-schema path its own test suite exercises since this module
// has no fixed, compile-time row struct per table).
package ioformat

import "github.com/chunklake/chunklake/table"

// Compression is the codec applied to a written part file, independent
// of the table's own column types (spec §6).
type Compression int

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionLz4Raw
)

func (c Compression) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionLz4Raw:
		return "lz4raw"
	default:
		return "none"
	}
}

// Reader reads a whole part file back into a Table, given the schema
// the caller expects it to conform to and the compression codec it was
// written with (spec §6 — the dataset manifest records that codec once
// per storage, not per part, since the reader needs it up front).
type Reader interface {
	Read(path string, fields []table.Field, compression Compression) (*table.Table, error)
}

// Writer writes a Table out to path under the given schema and
// compression codec.
type Writer interface {
	Write(path string, fields []table.Field, t *table.Table, compression Compression) error
}
