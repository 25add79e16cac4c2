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

package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

var errUnsupportedCodec = errors.New("unsupported codec")

type accessUnit struct {
	data      []byte
	timestamp uint32
}

// assembler groups RTP payloads into access units. A sequence gap drops the
// partial unit and waits for the next partition head.
type assembler struct {
	newDepacketizer func() rtp.Depacketizer
	depack          rtp.Depacketizer
	buf             []byte
	timestamp       uint32
	lastSeq         uint16
	haveSeq         bool
	resync          bool
}

func newAssembler(codec string) (*assembler, error) {
	var factory func() rtp.Depacketizer

	switch strings.ToUpper(codec) {
	case "H264":
		factory = func() rtp.Depacketizer { return &codecs.H264Packet{} }
	case "VP8":
		factory = func() rtp.Depacketizer { return &codecs.VP8Packet{} }
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedCodec, codec)
	}

	return &assembler{newDepacketizer: factory, depack: factory()}, nil
}

func (a *assembler) reset() {
	a.buf = nil
	a.depack = a.newDepacketizer()
}

// push returns a complete access unit when pkt closes one.
func (a *assembler) push(pkt *rtp.Packet) (*accessUnit, error) {
	if a.haveSeq && pkt.SequenceNumber != a.lastSeq+1 {
		a.reset()
		a.resync = true
	}

	a.lastSeq = pkt.SequenceNumber
	a.haveSeq = true

	if len(a.buf) > 0 && pkt.Timestamp != a.timestamp {
		a.reset()
	}

	if a.resync {
		if !a.depack.IsPartitionHead(pkt.Payload) {
			return nil, nil
		}

		a.resync = false
	}

	data, err := a.depack.Unmarshal(pkt.Payload)
	if err != nil {
		a.reset()
		a.resync = true

		return nil, err
	}

	a.timestamp = pkt.Timestamp
	a.buf = append(a.buf, data...)

	if !a.depack.IsPartitionTail(pkt.Marker, pkt.Payload) || len(a.buf) == 0 {
		return nil, nil
	}

	au := &accessUnit{data: a.buf, timestamp: a.timestamp}
	a.buf = nil

	return au, nil
}
