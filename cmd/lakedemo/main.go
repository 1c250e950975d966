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

// Command lakedemo builds a small in-memory table, partitions it,
// writes it to a Parquet-backed dataset, and reads it back — the same
// read/groupby/to_dataset/to_storage/from_storage round trip
// original_source's main.rs demonstrates against arrow-lake.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/chunklake/chunklake/chunk"
	"github.com/chunklake/chunklake/column"
	"github.com/chunklake/chunklake/dataset"
	"github.com/chunklake/chunklake/internal/lakelog"
	"github.com/chunklake/chunklake/ioformat"
	"github.com/chunklake/chunklake/table"
)

var fields = []table.Field{
	{Name: "region", DataType: column.Int32},
	{Name: "product", DataType: column.Int32},
	{Name: "amount", DataType: column.Int64},
}

func sampleTable() *table.Table {
	c := chunk.New([]column.Array{
		column.NewPrimitiveArray[int32]([]int32{1, 1, 1, 2, 2, 3}, nil),
		column.NewPrimitiveArray[int32]([]int32{10, 10, 20, 10, 20, 10}, nil),
		column.NewPrimitiveArray[int64]([]int64{100, 50, 75, 200, 125, 300}, nil),
	})
	return table.New(fields, []*chunk.Chunk{c})
}

func run(root string) error {
	log := lakelog.Logger()
	t := sampleTable()
	log.Info("built demo table", zap.Int("rows", t.NumRows()))

	ds, err := dataset.FromTable(t, []string{"region"}, []string{"product"}, dataset.Storage{
		Root:        root,
		Format:      "parquet",
		Compression: ioformat.CompressionSnappy,
	})
	if err != nil {
		return fmt.Errorf("group table into dataset: %w", err)
	}
	log.Info("grouped dataset", zap.Int("parts", len(ds.Parts)))

	var parquet ioformat.Parquet
	if err := ds.ToStorage(parquet, fields); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	log.Info("wrote dataset", zap.String("root", root))

	loaded, err := dataset.FromStorage(parquet, root, fields, false)
	if err != nil {
		return fmt.Errorf("read dataset back: %w", err)
	}

	rows := 0
	for _, part := range loaded.Parts {
		rows += part.Table.NumRows()
	}
	log.Info("read dataset back", zap.Int("parts", len(loaded.Parts)), zap.Int("rows", rows))
	return nil
}

func main() {
	root := flag.String("root", "", "dataset root directory to write to (required)")
	flag.Parse()
	if *root == "" {
		fmt.Fprintln(os.Stderr, "usage: lakedemo -root <dataset-directory>")
		os.Exit(2)
	}
	if err := run(*root); err != nil {
		lakelog.Logger().Error("lakedemo failed", zap.Error(err))
		os.Exit(1)
	}
}
