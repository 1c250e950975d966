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

package ioformat

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	preader "github.com/xitongsys/parquet-go/reader"
	pwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/chunklake/chunklake/chunk"
	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/internal/lakelog"
	"github.com/chunklake/chunklake/lakeerr"
	"github.com/chunklake/chunklake/table"
	"go.uber.org/zap"
)

// ParquetWriteWorkers is the writer.NewJSONWriter row-group parallelism
// (xitongsys/parquet-go itself fans row groups out across this many
// goroutines during Write/WriteStop).
const ParquetWriteWorkers = 4

// Parquet is the reference Reader/Writer pair for spec §6's external
// I/O boundary, built on xitongsys/parquet-go's dynamic JSON-schema
// writer/reader — the only parquet-go path that does not require a
// compile-time Go struct per table schema.
type Parquet struct{}

var (
	_ Reader = Parquet{}
	_ Writer = Parquet{}
)

type jsonSchemaField struct {
	Tag    string            `json:"Tag"`
	Fields []jsonSchemaField `json:"Fields,omitempty"`
}

func parquetTypeTag(name string, f table.Field) string {
	repetition := "REQUIRED"
	if f.Nullable {
		repetition = "OPTIONAL"
	}
	var typeName string
	switch f.DataType {
	case column.Int8, column.Int16, column.Int32:
		typeName = "type=INT32"
	case column.Int64:
		typeName = "type=INT64"
	case column.Uint8, column.Uint16:
		typeName = "type=INT32, convertedtype=UINT_16"
	case column.Uint32:
		typeName = "type=INT64, convertedtype=UINT_32"
	case column.Uint64:
		typeName = "type=INT64, convertedtype=UINT_64"
	case column.Float32:
		typeName = "type=FLOAT"
	case column.Float64:
		typeName = "type=DOUBLE"
	case column.Utf8:
		typeName = "type=BYTE_ARRAY, convertedtype=UTF8"
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=%s", name, typeName, repetition)
}

func buildJSONSchema(fields []table.Field) (string, error) {
	root := jsonSchemaField{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, f := range fields {
		root.Fields = append(root.Fields, jsonSchemaField{Tag: parquetTypeTag(f.Name, f)})
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func compressionCodec(c Compression) parquet.CompressionCodec {
	// The outer Compress/Decompress wrap (see compression.go) handles
	// the spec's {Snappy, Lz4Raw} codecs; row groups themselves are
	// written uncompressed so that wrap is the only place compression
	// happens.
	_ = c
	return parquet.CompressionCodec_UNCOMPRESSED
}

func rowValue(col column.Array, i int) (interface{}, error) {
	switch a := col.(type) {
	case *column.PrimitiveArray[int8]:
		if v, ok := a.Value(i); ok {
			return int32(v), nil
		}
		return nil, nil
	case *column.PrimitiveArray[int16]:
		if v, ok := a.Value(i); ok {
			return int32(v), nil
		}
		return nil, nil
	case *column.PrimitiveArray[int32]:
		if v, ok := a.Value(i); ok {
			return v, nil
		}
		return nil, nil
	case *column.PrimitiveArray[int64]:
		if v, ok := a.Value(i); ok {
			return v, nil
		}
		return nil, nil
	case *column.PrimitiveArray[uint8]:
		if v, ok := a.Value(i); ok {
			return int32(v), nil
		}
		return nil, nil
	case *column.PrimitiveArray[uint16]:
		if v, ok := a.Value(i); ok {
			return int32(v), nil
		}
		return nil, nil
	case *column.PrimitiveArray[uint32]:
		if v, ok := a.Value(i); ok {
			return int64(v), nil
		}
		return nil, nil
	case *column.PrimitiveArray[uint64]:
		if v, ok := a.Value(i); ok {
			return int64(v), nil
		}
		return nil, nil
	case *column.PrimitiveArray[float32]:
		if v, ok := a.Value(i); ok {
			return v, nil
		}
		return nil, nil
	case *column.PrimitiveArray[float64]:
		if v, ok := a.Value(i); ok {
			return v, nil
		}
		return nil, nil
	case *column.StringArray:
		if v, ok := a.Value(i); ok {
			return v, nil
		}
		return nil, nil
	default:
		return nil, lakeerr.NewUnsupportedKeyType(col.DataType().String())
	}
}

// Write encodes t to a local Parquet file at path using fields as its
// schema, wrapping the encoded bytes with compression afterward (spec
// §6 write(path, schema, chunks)).
func (Parquet) Write(path string, fields []table.Field, t *table.Table, compression Compression) error {
	schema, err := buildJSONSchema(fields)
	if err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "build parquet schema"))
	}

	tmp, err := os.CreateTemp("", "chunklake-part-*.parquet")
	if err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "create temp part file"))
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	fw, err := local.NewLocalFileWriter(tmpPath)
	if err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "open temp part file"))
	}
	pw, err := pwriter.NewJSONWriter(schema, fw, ParquetWriteWorkers)
	if err != nil {
		fw.Close()
		return lakeerr.NewIoError(path, errors.Wrap(err, "create parquet writer"))
	}
	pw.CompressionType = compressionCodec(compression)

	cols := make([]column.Array, len(fields))
	for i, f := range fields {
		col, err := t.Column(f.Name)
		if err != nil {
			return err
		}
		cols[i] = col
	}

	for row := 0; row < t.NumRows(); row++ {
		rec := make(map[string]interface{}, len(fields))
		for i, f := range fields {
			v, err := rowValue(cols[i], row)
			if err != nil {
				return err
			}
			rec[f.Name] = v
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return lakeerr.NewIoError(path, errors.Wrap(err, "marshal parquet row"))
		}
		if err := pw.Write(string(b)); err != nil {
			return lakeerr.NewIoError(path, errors.Wrap(err, "write parquet row"))
		}
	}
	if err := pw.WriteStop(); err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "finalize parquet row groups"))
	}
	if err := fw.Close(); err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "close temp part file"))
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "read back temp part file"))
	}
	compressed, err := Compress(compression, raw)
	if err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "compress part file"))
	}
	// An 8-byte big-endian length prefix makes the on-disk file
	// self-describing, since the raw Lz4Raw block codec carries no
	// length of its own.
	out := make([]byte, 8+len(compressed))
	binary.BigEndian.PutUint64(out, uint64(len(raw)))
	copy(out[8:], compressed)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return lakeerr.NewIoError(path, errors.Wrap(err, "write part file"))
	}
	lakelog.Logger().Info("wrote dataset part",
		zap.String("path", path), zap.Int("rows", t.NumRows()), zap.String("compression", compression.String()))
	return nil
}

// Read decodes a Parquet part file at path back into a Table
// conforming to fields (spec §6 read(path) -> Table). compression must
// match what the part was written with, since the raw file carries no
// codec tag of its own (the dataset manifest records it per spec §6).
func (Parquet) Read(path string, fields []table.Field, compression Compression) (*table.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, lakeerr.NewIoError(path, err)
	}
	if len(raw) < 8 {
		return nil, lakeerr.NewIoError(path, fmt.Errorf("part file too short: %d bytes", len(raw)))
	}
	uncompressedSize := int(binary.BigEndian.Uint64(raw[:8]))
	decompressed, err := Decompress(compression, raw[8:], uncompressedSize)
	if err != nil {
		return nil, lakeerr.NewIoError(path, errors.Wrap(err, "decompress part file"))
	}

	tmp, err := os.CreateTemp("", "chunklake-read-*.parquet")
	if err != nil {
		return nil, lakeerr.NewIoError(path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(decompressed); err != nil {
		tmp.Close()
		return nil, lakeerr.NewIoError(path, err)
	}
	tmp.Close()

	fr, err := local.NewLocalFileReader(tmpPath)
	if err != nil {
		return nil, lakeerr.NewIoError(path, errors.Wrap(err, "open decompressed part file"))
	}
	defer fr.Close()

	pr, err := preader.NewParquetReader(fr, nil, ParquetWriteWorkers)
	if err != nil {
		return nil, lakeerr.NewIoError(path, errors.Wrap(err, "create parquet reader"))
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	rows, err := pr.ReadByNumber(numRows)
	if err != nil {
		return nil, lakeerr.NewIoError(path, errors.Wrap(err, "read parquet rows"))
	}

	records := make([]map[string]interface{}, numRows)
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, lakeerr.NewIoError(path, errors.Wrap(err, "normalize parquet row"))
		}
		var rec map[string]interface{}
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, lakeerr.NewIoError(path, errors.Wrap(err, "normalize parquet row"))
		}
		records[i] = rec
	}

	cols := make([]column.Array, len(fields))
	for i, f := range fields {
		col, err := columnFromRecords(f, records)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	c := chunk.New(cols)
	return table.New(fields, []*chunk.Chunk{c}), nil
}

func columnFromRecords(f table.Field, records []map[string]interface{}) (column.Array, error) {
	switch f.DataType {
	case column.Int8, column.Int16, column.Int32, column.Uint8, column.Uint16:
		return int32Column(f, records)
	case column.Int64, column.Uint32, column.Uint64:
		return int64Column(f, records)
	case column.Float32:
		return float32Column(f, records)
	case column.Float64:
		return float64Column(f, records)
	case column.Utf8:
		return stringColumn(f, records)
	default:
		return nil, lakeerr.NewUnsupportedKeyType(f.DataType.String())
	}
}

func int32Column(f table.Field, records []map[string]interface{}) (column.Array, error) {
	values := make([]int32, len(records))
	var nulls []bool
	for i, r := range records {
		v, ok := r[f.Name]
		if !ok || v == nil {
			if nulls == nil {
				nulls = make([]bool, len(records))
			}
			nulls[i] = true
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return nil, lakeerr.NewIoError(f.Name, fmt.Errorf("unexpected parquet value %T for %s", v, f.Name))
		}
		values[i] = int32(n)
	}
	return column.NewPrimitiveArray(values, nulls), nil
}

func int64Column(f table.Field, records []map[string]interface{}) (column.Array, error) {
	values := make([]int64, len(records))
	var nulls []bool
	for i, r := range records {
		v, ok := r[f.Name]
		if !ok || v == nil {
			if nulls == nil {
				nulls = make([]bool, len(records))
			}
			nulls[i] = true
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return nil, lakeerr.NewIoError(f.Name, fmt.Errorf("unexpected parquet value %T for %s", v, f.Name))
		}
		values[i] = int64(n)
	}
	return column.NewPrimitiveArray(values, nulls), nil
}

func float32Column(f table.Field, records []map[string]interface{}) (column.Array, error) {
	values := make([]float32, len(records))
	var nulls []bool
	for i, r := range records {
		v, ok := r[f.Name]
		if !ok || v == nil {
			if nulls == nil {
				nulls = make([]bool, len(records))
			}
			nulls[i] = true
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return nil, lakeerr.NewIoError(f.Name, fmt.Errorf("unexpected parquet value %T for %s", v, f.Name))
		}
		values[i] = float32(n)
	}
	return column.NewPrimitiveArray(values, nulls), nil
}

func float64Column(f table.Field, records []map[string]interface{}) (column.Array, error) {
	values := make([]float64, len(records))
	var nulls []bool
	for i, r := range records {
		v, ok := r[f.Name]
		if !ok || v == nil {
			if nulls == nil {
				nulls = make([]bool, len(records))
			}
			nulls[i] = true
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return nil, lakeerr.NewIoError(f.Name, fmt.Errorf("unexpected parquet value %T for %s", v, f.Name))
		}
		values[i] = n
	}
	return column.NewPrimitiveArray(values, nulls), nil
}

func stringColumn(f table.Field, records []map[string]interface{}) (column.Array, error) {
	values := make([]string, len(records))
	var nulls []bool
	for i, r := range records {
		v, ok := r[f.Name]
		if !ok || v == nil {
			if nulls == nil {
				nulls = make([]bool, len(records))
			}
			nulls[i] = true
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, lakeerr.NewIoError(f.Name, fmt.Errorf("unexpected parquet value %T for %s", v, f.Name))
		}
		values[i] = s
	}
	return column.NewStringArray(values, nulls), nil
}
