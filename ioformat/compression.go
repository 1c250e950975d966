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
	"fmt"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// Compress wraps a whole encoded part file with the codec named by c,
// applied on top of (not instead of) whatever internal encoding the
// format itself uses — the Parquet adapter writes its row groups
// uncompressed and relies on this outer wrap, so the same codec
// selection would work unchanged for a non-Parquet format later.
func Compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionSnappy:
		return snappy.Encode(nil, data), nil
	case CompressionLz4Raw:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var compressor lz4.Compressor
		n, err := compressor.CompressBlock(data, buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible input: lz4 signals this by writing nothing.
			return data, nil
		}
		return buf[:n], nil
	default:
		return nil, fmt.Errorf("ioformat: unknown compression %d", c)
	}
}

// Decompress reverses Compress. For Lz4Raw it needs the original
// uncompressed size, which the caller must track alongside the bytes
// (the raw block format carries no length header of its own).
func Decompress(c Compression, data []byte, uncompressedSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionSnappy:
		return snappy.Decode(nil, data)
	case CompressionLz4Raw:
		if uncompressedSize <= len(data) {
			// The compressor declined to shrink it; Compress returned it verbatim.
			return data, nil
		}
		buf := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(data, buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	default:
		return nil, fmt.Errorf("ioformat: unknown compression %d", c)
	}
}
