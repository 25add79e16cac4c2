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
	"errors"
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"
)

// chunkOverhead bounds the framing bytes of one encoded chunk: two tags, a
// remaining-length varint and a data length varint for payloads up to 64KiB.
const chunkOverhead = 1 + 3 + 1 + 3

var (
	ErrMTUTooSmall     = errors.New("mtu too small for chunk framing")
	ErrPayloadTooLarge = errors.New("reassembled payload exceeds limit")
	ErrChunkSequence   = errors.New("chunk sequence inconsistent")
)

// Chunk is one radio write of a larger payload. Remaining counts the bytes
// still to come after Data; zero marks the final chunk.
type Chunk struct {
	Remaining uint64
	Data      []byte
}

func EncodeChunk(c Chunk) []byte {
	var b []byte
	b = appendVarintField(b, fieldChunkRemain, c.Remaining)
	b = protowire.AppendTag(b, fieldChunkData, protowire.BytesType)

	return protowire.AppendBytes(b, c.Data)
}

func DecodeChunk(b []byte) (Chunk, error) {
	var c Chunk

	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldChunkRemain:
			return consumeVarint(typ, b, &c.Remaining)
		case fieldChunkData:
			return consumeBytes(typ, b, &c.Data)
		}

		return skip, nil
	})

	return c, err
}

// Split frames payload into encoded chunks that each fit in mtu bytes.
func Split(payload []byte, mtu int) ([][]byte, error) {
	per := mtu - chunkOverhead
	if per <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrMTUTooSmall, mtu)
	}

	if len(payload) == 0 {
		return [][]byte{EncodeChunk(Chunk{})}, nil
	}

	out := make([][]byte, 0, (len(payload)+per-1)/per)

	for off := 0; off < len(payload); off += per {
		end := min(off+per, len(payload))
		out = append(out, EncodeChunk(Chunk{
			Remaining: uint64(len(payload) - end),
			Data:      payload[off:end],
		}))
	}

	return out, nil
}

type cursor struct {
	buf   []byte
	total int
}

// Reassembler joins chunk streams, keeping one cursor per radio address.
type Reassembler struct {
	mu      sync.Mutex
	max     int
	cursors map[string]*cursor
}

func NewReassembler(maxPayload int) *Reassembler {
	return &Reassembler{
		max:     maxPayload,
		cursors: make(map[string]*cursor),
	}
}

// Feed consumes one encoded chunk from address. It returns the full payload
// once the final chunk arrives. Any error discards the address's cursor.
func (r *Reassembler) Feed(address string, raw []byte) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := DecodeChunk(raw)
	if err != nil {
		delete(r.cursors, address)
		return nil, false, malformed(err)
	}

	cur, ok := r.cursors[address]
	if !ok {
		if c.Remaining > uint64(r.max) || len(c.Data)+int(c.Remaining) > r.max {
			return nil, false, malformed(fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, uint64(len(c.Data))+c.Remaining, r.max))
		}

		cur = &cursor{total: len(c.Data) + int(c.Remaining)}

		r.cursors[address] = cur
	}

	cur.buf = append(cur.buf, c.Data...)

	if len(cur.buf)+int(c.Remaining) != cur.total {
		delete(r.cursors, address)
		return nil, false, malformed(fmt.Errorf("%w: have %d, %d remaining, expected %d",
			ErrChunkSequence, len(cur.buf), c.Remaining, cur.total))
	}

	if c.Remaining > 0 {
		return nil, false, nil
	}

	delete(r.cursors, address)

	return cur.buf, true, nil
}

// Discard drops a partially received payload, e.g. when the peer disconnects.
func (r *Reassembler) Discard(address string) {
	r.mu.Lock()
	delete(r.cursors, address)
	r.mu.Unlock()
}

// Pending reports how many addresses have a transfer in flight.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.cursors)
}
