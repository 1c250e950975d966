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

// Package lakelog wraps a package-level zap logger, used for the
// per-part write line in ioformat and the dataset write summary in
// dataset.
package lakelog

import "go.uber.org/zap"

var logger *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

// Logger returns the package-level logger.
func Logger() *zap.Logger {
	return logger
}

// SetLogger overrides the package-level logger, letting a host
// application (or a test) swap in a zaptest/observer logger.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}
