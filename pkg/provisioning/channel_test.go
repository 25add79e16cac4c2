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
	"errors"
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errRadioDown = errors.New("radio down")

func testConfig() models.ProvisioningConfig {
	return models.ProvisioningConfig{MaxPayload: 5000, MTU: 64, HostID: "host-1", HostName: "desk"}
}

func feed(t *testing.T, writes chan<- RadioWrite, address string, payload []byte) {
	t.Helper()

	chunks, err := Split(payload, 64)
	require.NoError(t, err)

	for _, c := range chunks {
		writes <- RadioWrite{Address: address, Data: c}
	}
}

func TestChannelAdvertise(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := NewMockRadio(ctrl)

	radio.EXPECT().Advertise(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, payload []byte) error {
		adv, err := DecodeAdvertisement(payload)
		require.NoError(t, err)
		assert.Equal(t, Advertisement{HostID: "host-1", HostName: "desk", ConnectionType: "ap"}, adv)

		return nil
	})

	ch := NewChannel(radio, testConfig(), "ap", logger.NewTestLogger(), nil)
	require.NoError(t, ch.Advertise(context.Background()))
}

func TestChannelAdvertiseError(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := NewMockRadio(ctrl)
	radio.EXPECT().Advertise(gomock.Any(), gomock.Any()).Return(errRadioDown)

	ch := NewChannel(radio, testConfig(), "wlan", logger.NewTestLogger(), nil)
	assert.ErrorIs(t, ch.Advertise(context.Background()), errRadioDown)
}

func TestChannelListenDropsMalformed(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := NewMockRadio(ctrl)

	writes := make(chan RadioWrite, 256)
	radio.EXPECT().Writes(gomock.Any()).Return((<-chan RadioWrite)(writes), nil)

	ch := NewChannel(radio, testConfig(), "ap", logger.NewTestLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := ch.Listen(ctx)

	bad := sampleRecord()
	bad.Version = 0
	feed(t, writes, "11:11", EncodeRecord(bad))
	writes <- RadioWrite{Address: "22:22", Data: []byte{0xff, 0xff, 0xff}}

	// a half transfer interrupted by a disconnect never surfaces
	partial, err := Split(EncodeRecord(sampleRecord()), 64)
	require.NoError(t, err)
	writes <- RadioWrite{Address: "33:33", Data: partial[0]}
	writes <- RadioWrite{Address: "33:33", Disconnected: true}

	feed(t, writes, "44:44", EncodeRecord(sampleRecord()))

	select {
	case rec := <-records:
		assert.Equal(t, "pixel-7", rec.DeviceID)
		assert.Equal(t, "44:44", rec.RadioAddress)
		assert.False(t, rec.ReceivedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no record received")
	}
}

func TestChannelListenYieldsEveryExchange(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := NewMockRadio(ctrl)

	writes := make(chan RadioWrite, 256)
	radio.EXPECT().Writes(gomock.Any()).Return((<-chan RadioWrite)(writes), nil)

	ch := NewChannel(radio, testConfig(), "ap", logger.NewTestLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := ch.Listen(ctx)

	payload := EncodeRecord(sampleRecord())
	feed(t, writes, "55:55", payload)
	feed(t, writes, "55:55", payload)

	for i := 0; i < 2; i++ {
		select {
		case rec := <-records:
			assert.Equal(t, uint64(7), rec.Version)
		case <-time.After(2 * time.Second):
			t.Fatalf("record %d not received", i)
		}
	}
}

func TestChannelListenRestartable(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := NewMockRadio(ctrl)

	first := make(chan RadioWrite)
	second := make(chan RadioWrite, 64)

	gomock.InOrder(
		radio.EXPECT().Writes(gomock.Any()).Return((<-chan RadioWrite)(first), nil),
		radio.EXPECT().Writes(gomock.Any()).Return((<-chan RadioWrite)(second), nil),
	)

	ch := NewChannel(radio, testConfig(), "ap", logger.NewTestLogger(), nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	records := ch.Listen(ctx1)
	cancel1()

	_, open := <-records
	assert.False(t, open)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	records = ch.Listen(ctx2)
	feed(t, second, "66:66", EncodeRecord(sampleRecord()))

	select {
	case rec := <-records:
		assert.Equal(t, "66:66", rec.RadioAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("restarted listener produced nothing")
	}
}

func TestChannelListenSubscribeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := NewMockRadio(ctrl)
	radio.EXPECT().Writes(gomock.Any()).Return(nil, errRadioDown)

	ch := NewChannel(radio, testConfig(), "ap", logger.NewTestLogger(), nil)

	_, open := <-ch.Listen(context.Background())
	assert.False(t, open)
}

func TestWriteFromMsg(t *testing.T) {
	m := nats.NewMsg("webcamd.radio.write")
	m.Header.Set(HeaderRadioAddress, "aa:bb")
	m.Data = []byte{1, 2}

	assert.Equal(t, RadioWrite{Address: "aa:bb", Data: []byte{1, 2}}, writeFromMsg(m))

	m.Header.Set(HeaderRadioEvent, "disconnect")
	assert.True(t, writeFromMsg(m).Disconnected)
}
