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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("chunklake part bytes "), 200)

	for _, c := range []Compression{CompressionNone, CompressionSnappy, CompressionLz4Raw} {
		compressed, err := Compress(c, payload)
		require.NoError(t, err, c)
		out, err := Decompress(c, compressed, len(payload))
		require.NoError(t, err, c)
		assert.Equal(t, payload, out, c)
	}
}

func TestCompressionString(t *testing.T) {
	assert.Equal(t, "snappy", CompressionSnappy.String())
	assert.Equal(t, "lz4raw", CompressionLz4Raw.String())
	assert.Equal(t, "none", CompressionNone.String())
}
