/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package provisioning

import (
	"bytes"
	"testing"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFitsMTU(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 1000)

	chunks, err := Split(payload, 64)
	require.NoError(t, err)
	require.Len(t, chunks, (1000+55)/56)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 64)
	}

	last, err := DecodeChunk(chunks[len(chunks)-1])
	require.NoError(t, err)
	assert.Zero(t, last.Remaining)
}

func TestSplitMTUTooSmall(t *testing.T) {
	_, err := Split([]byte("x"), chunkOverhead)
	assert.ErrorIs(t, err, ErrMTUTooSmall)
}

func TestReassembleInterleavedAddresses(t *testing.T) {
	a := bytes.Repeat([]byte("a"), 300)
	b := bytes.Repeat([]byte("b"), 200)

	ca, err := Split(a, 40)
	require.NoError(t, err)
	cb, err := Split(b, 40)
	require.NoError(t, err)

	r := NewReassembler(5000)

	var gotA, gotB []byte

	for i := 0; i < max(len(ca), len(cb)); i++ {
		if i < len(ca) {
			out, done, err := r.Feed("aa:aa", ca[i])
			require.NoError(t, err)
			if done {
				gotA = out
			}
		}

		if i < len(cb) {
			out, done, err := r.Feed("bb:bb", cb[i])
			require.NoError(t, err)
			if done {
				gotB = out
			}
		}
	}

	assert.Equal(t, a, gotA)
	assert.Equal(t, b, gotB)
	assert.Zero(t, r.Pending())
}

func TestReassembleRejectsOversized(t *testing.T) {
	chunks, err := Split(bytes.Repeat([]byte("z"), 600), 100)
	require.NoError(t, err)

	r := NewReassembler(500)

	_, _, err = r.Feed("cc:cc", chunks[0])
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.ErrorIs(t, err, models.ErrProvisioningMalformed)
	assert.Zero(t, r.Pending())
}

func TestReassembleRejectsInconsistentSequence(t *testing.T) {
	r := NewReassembler(5000)

	_, done, err := r.Feed("dd:dd", EncodeChunk(Chunk{Remaining: 10, Data: []byte("hello")}))
	require.NoError(t, err)
	require.False(t, done)

	_, _, err = r.Feed("dd:dd", EncodeChunk(Chunk{Remaining: 9, Data: []byte("world")}))
	assert.ErrorIs(t, err, ErrChunkSequence)
	assert.Zero(t, r.Pending())
}

func TestReassembleDiscard(t *testing.T) {
	r := NewReassembler(5000)

	_, _, err := r.Feed("ee:ee", EncodeChunk(Chunk{Remaining: 3, Data: []byte("abc")}))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Pending())

	r.Discard("ee:ee")
	assert.Zero(t, r.Pending())

	out, done, err := r.Feed("ee:ee", EncodeChunk(Chunk{Data: []byte("fresh")}))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []byte("fresh"), out)
}
