// Copyright 2025 Squire Authors
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

package mcp

import (
	"context"
)

// callResult carries a value and error across the bridge goroutine.
type callResult[T any] struct {
	value T
	err   error
}

// callSync runs fn in its own goroutine and blocks the caller until fn
// completes or ctx is done, whichever comes first. When the deadline
// wins, the in-flight call is abandoned: the goroutine finishes on its
// own and its result is discarded into the buffered channel. The caller
// returns promptly and the underlying connection is left untouched, so
// other calls on the same connection are unaffected.
func callSync[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	done := make(chan callResult[T], 1)

	go func() {
		value, err := fn(ctx)
		done <- callResult[T]{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
