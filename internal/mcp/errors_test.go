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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMCPErrorMessage(t *testing.T) {
	err := ErrConnectFailed("files", assert.AnError)
	assert.Contains(t, err.Error(), "files")
	assert.Contains(t, err.Error(), "failed to connect")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCodeTimeout, CodeOf(ErrCallTimeout("s", "t", nil)))
	assert.Equal(t, ErrorCodeTransport, CodeOf(ErrTransport("s", nil)))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))

	// The code survives wrapping.
	wrapped := fmt.Errorf("outer: %w", ErrDiscoveryFailed("s", nil))
	assert.Equal(t, ErrorCodeDiscoveryFailed, CodeOf(wrapped))
}

func TestErrToolFailedDetail(t *testing.T) {
	withDetail := ErrToolFailed("files", "read", "no such path")
	assert.Contains(t, withDetail.Error(), "no such path")

	withoutDetail := ErrToolFailed("files", "read", "")
	assert.Contains(t, withoutDetail.Error(), "tool read failed")
}
