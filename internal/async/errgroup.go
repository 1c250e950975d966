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

// Package async collects the small concurrency primitives the relational
// kernels build fan-out/fan-in regions on top of.
package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// GoWithCancel runs f in the errgroup eg with a child context derived
// from ctx, and returns a cancel func the caller can use to stop f
// early without that by itself counting as a group error.
func GoWithCancel(ctx context.Context, eg *errgroup.Group, f func(ctx context.Context) error) context.CancelFunc {
	childCtx, cancel := context.WithCancel(ctx)
	eg.Go(func() error {
		err := f(childCtx)
		if err == context.Canceled && childCtx.Err() == context.Canceled && ctx.Err() == nil {
			return nil
		}
		return err
	})
	return cancel
}
