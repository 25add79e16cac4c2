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
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	// HeaderRadioAddress identifies the phone a write came from.
	HeaderRadioAddress = "Radio-Address"
	// HeaderRadioEvent carries link events such as "disconnect".
	HeaderRadioEvent = "Radio-Event"

	radioEventDisconnect = "disconnect"
	writeBuffer          = 64
)

// NATSRadio bridges to a radio daemon that owns the GATT server. The daemon
// consumes <prefix>.advertise and publishes characteristic writes on <prefix>.write.
type NATSRadio struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSRadio(nc *nats.Conn, prefix string) *NATSRadio {
	return &NATSRadio{nc: nc, prefix: prefix}
}

func (r *NATSRadio) advertiseSubject() string { return r.prefix + ".advertise" }
func (r *NATSRadio) writeSubject() string     { return r.prefix + ".write" }

// Advertise implements Radio.
func (r *NATSRadio) Advertise(ctx context.Context, payload []byte) error {
	if err := r.nc.Publish(r.advertiseSubject(), payload); err != nil {
		return err
	}

	return r.nc.FlushWithContext(ctx)
}

// Writes implements Radio.
func (r *NATSRadio) Writes(ctx context.Context) (<-chan RadioWrite, error) {
	msgs := make(chan *nats.Msg, writeBuffer)

	sub, err := r.nc.ChanSubscribe(r.writeSubject(), msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", r.writeSubject(), err)
	}

	out := make(chan RadioWrite)

	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				select {
				case out <- writeFromMsg(m):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Inject publishes payload as a chunked write from address, the way the radio
// daemon forwards a phone's exchange. Used by tooling to provision without a phone.
func (r *NATSRadio) Inject(ctx context.Context, address string, payload []byte, mtu int) error {
	chunks, err := Split(payload, mtu)
	if err != nil {
		return err
	}

	for _, chunk := range chunks {
		m := nats.NewMsg(r.writeSubject())
		m.Header.Set(HeaderRadioAddress, address)
		m.Data = chunk

		if err := r.nc.PublishMsg(m); err != nil {
			return err
		}
	}

	return r.nc.FlushWithContext(ctx)
}

func writeFromMsg(m *nats.Msg) RadioWrite {
	return RadioWrite{
		Address:      m.Header.Get(HeaderRadioAddress),
		Data:         m.Data,
		Disconnected: m.Header.Get(HeaderRadioEvent) == radioEventDisconnect,
	}
}
