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

// Package dataset implements Dataset: a table partitioned across a
// directory tree of part files, plus its manifest.json sidecar (spec
// §6). Grounded on original_source's dataset.rs (Dataset::from_storage,
// Dataset::to_storage, DatasetPart::partition_path/load).
package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chunklake/chunklake/internal/async"
	"github.com/chunklake/chunklake/internal/lakelog"
	"github.com/chunklake/chunklake/ioformat"
	"github.com/chunklake/chunklake/lakeerr"
	"github.com/chunklake/chunklake/table"
)

const manifestFileName = "manifest.json"

// Storage describes where and how a Dataset's parts are persisted.
type Storage struct {
	Root        string
	Format      string
	Compression ioformat.Compression
}

type manifestDoc struct {
	Partitions []string `json:"partitions"`
	Buckets    []string `json:"buckets"`
	Storage    struct {
		Root        string `json:"root"`
		Format      string `json:"format"`
		Compression string `json:"compression"`
	} `json:"storage"`
}

// Part is one partition/bucket combination of a Dataset: the filter
// values that identify it, its row data (nil when loaded lazily), and
// its path once known.
type Part struct {
	Filters map[string]string
	Table   *table.Table
	Path    string
}

// Dataset is a table split across partitions (and, within each
// partition, buckets), backed by a directory of part files.
type Dataset struct {
	Partitions []string
	Buckets    []string
	Parts      []*Part
	Storage    Storage
}

// FromTable groups t by partitions then buckets (in that combined
// key order) to build an in-memory Dataset, ready for ToStorage.
func FromTable(t *table.Table, partitions, buckets []string, storage Storage) (*Dataset, error) {
	keyCols := make([]string, 0, len(partitions)+len(buckets))
	keyCols = append(keyCols, partitions...)
	keyCols = append(keyCols, buckets...)

	if len(keyCols) == 0 {
		return &Dataset{
			Partitions: partitions,
			Buckets:    buckets,
			Parts:      []*Part{{Filters: map[string]string{}, Table: t}},
			Storage:    storage,
		}, nil
	}

	groups, err := t.GroupBy(keyCols)
	if err != nil {
		return nil, err
	}
	parts := make([]*Part, len(groups))
	for i, g := range groups {
		parts[i] = &Part{Filters: g.Filters, Table: g.Table}
	}
	return &Dataset{Partitions: partitions, Buckets: buckets, Parts: parts, Storage: storage}, nil
}

func (d *Dataset) keyColumns() []string {
	keyCols := make([]string, 0, len(d.Partitions)+len(d.Buckets))
	keyCols = append(keyCols, d.Partitions...)
	keyCols = append(keyCols, d.Buckets...)
	return keyCols
}

// partitionPath builds root/col1=v1/col2=v2/.../<uuid>.parquet for a
// part, in partitions-then-buckets order (spec §6 directory layout).
func partitionPath(root string, keyCols []string, filters map[string]string, id string) string {
	segments := make([]string, 0, len(keyCols)+1)
	segments = append(segments, root)
	for _, col := range keyCols {
		segments = append(segments, col+"="+filters[col])
	}
	segments = append(segments, id+".parquet")
	return filepath.Join(segments...)
}

// ToStorage writes every part to d.Storage.Root, replacing anything
// already there, then writes the manifest.json sidecar (spec §6
// to_storage). Parts are written concurrently, one goroutine per part.
func (d *Dataset) ToStorage(writer ioformat.Writer, fields []table.Field) error {
	if err := os.RemoveAll(d.Storage.Root); err != nil {
		return lakeerr.NewIoError(d.Storage.Root, errors.Wrap(err, "clear existing dataset root"))
	}
	if err := os.MkdirAll(d.Storage.Root, 0o755); err != nil {
		return lakeerr.NewIoError(d.Storage.Root, errors.Wrap(err, "create dataset root"))
	}

	keyCols := d.keyColumns()
	eg, groupCtx := errgroup.WithContext(context.Background())
	for _, part := range d.Parts {
		part := part
		part.Path = partitionPath(d.Storage.Root, keyCols, part.Filters, uuid.NewString())
		async.GoWithCancel(groupCtx, eg, func(taskCtx context.Context) error {
			// A sibling part may already have failed by the time this
			// task is scheduled; skip the write rather than paying for
			// a parquet encode whose result will just be discarded.
			if taskCtx.Err() != nil {
				return taskCtx.Err()
			}
			if err := os.MkdirAll(filepath.Dir(part.Path), 0o755); err != nil {
				return lakeerr.NewIoError(part.Path, err)
			}
			return writer.Write(part.Path, fields, part.Table, d.Storage.Compression)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := d.writeManifest(); err != nil {
		return err
	}
	totalRows := 0
	for _, p := range d.Parts {
		totalRows += p.Table.NumRows()
	}
	lakelog.Logger().Info("wrote dataset",
		zap.String("root", d.Storage.Root),
		zap.Int("parts", len(d.Parts)),
		zap.String("rows", humanize.Comma(int64(totalRows))))
	return nil
}

func (d *Dataset) writeManifest() error {
	doc := manifestDoc{Partitions: d.Partitions, Buckets: d.Buckets}
	doc.Storage.Root = d.Storage.Root
	doc.Storage.Format = d.Storage.Format
	doc.Storage.Compression = d.Storage.Compression.String()

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return lakeerr.NewManifestError(d.Storage.Root, err.Error())
	}
	path := filepath.Join(d.Storage.Root, manifestFileName)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return lakeerr.NewIoError(path, err)
	}
	return nil
}

// FromStorage reads the manifest.json at root, rediscovers parts by
// walking the directory tree for files containing "parquet" in their
// name, and parses each part's "k=v" path segments into its Filters
// (spec §6 from_storage). When lazy is false, every part's Table is
// read eagerly via reader.
func FromStorage(reader ioformat.Reader, root string, fields []table.Field, lazy bool) (*Dataset, error) {
	manifestPath := filepath.Join(root, manifestFileName)
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, lakeerr.NewManifestError(root, err.Error())
	}
	var doc manifestDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, lakeerr.NewManifestError(root, err.Error())
	}
	compression, err := parseCompression(doc.Storage.Compression)
	if err != nil {
		return nil, lakeerr.NewManifestError(root, err.Error())
	}

	d := &Dataset{
		Partitions: doc.Partitions,
		Buckets:    doc.Buckets,
		Storage: Storage{
			Root:        doc.Storage.Root,
			Format:      doc.Storage.Format,
			Compression: compression,
		},
	}
	keyCols := d.keyColumns()

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || !strings.Contains(info.Name(), "parquet") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		filters := parsePartitionSegments(rel, keyCols)
		part := &Part{Filters: filters, Path: path}
		if !lazy {
			t, err := reader.Read(path, fields, compression)
			if err != nil {
				return err
			}
			part.Table = t
		}
		d.Parts = append(d.Parts, part)
		return nil
	})
	if err != nil {
		return nil, lakeerr.NewIoError(root, err)
	}
	return d, nil
}

func parsePartitionSegments(relPath string, keyCols []string) map[string]string {
	filters := make(map[string]string, len(keyCols))
	segments := strings.Split(filepath.ToSlash(filepath.Dir(relPath)), "/")
	for _, seg := range segments {
		k, v, found := strings.Cut(seg, "=")
		if found {
			filters[k] = v
		}
	}
	return filters
}

func parseCompression(s string) (ioformat.Compression, error) {
	switch s {
	case "", "none":
		return ioformat.CompressionNone, nil
	case "snappy":
		return ioformat.CompressionSnappy, nil
	case "lz4raw":
		return ioformat.CompressionLz4Raw, nil
	default:
		return 0, errors.Errorf("unknown compression %q in manifest", s)
	}
}

// Load reads every not-yet-loaded part's Table (the lazy-load follow-up
// to a lazy FromStorage call).
func (d *Dataset) Load(reader ioformat.Reader, fields []table.Field) error {
	eg, groupCtx := errgroup.WithContext(context.Background())
	for _, part := range d.Parts {
		part := part
		if part.Table != nil {
			continue
		}
		async.GoWithCancel(groupCtx, eg, func(taskCtx context.Context) error {
			if taskCtx.Err() != nil {
				return taskCtx.Err()
			}
			t, err := reader.Read(part.Path, fields, d.Storage.Compression)
			if err != nil {
				return err
			}
			part.Table = t
			return nil
		})
	}
	return eg.Wait()
}
