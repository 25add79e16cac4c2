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

package media

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendRaw(t *testing.T, ch transport.Channel, env Envelope) {
	t.Helper()

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), raw))
}

func recvEnvelope(t *testing.T, ch transport.Channel) Envelope {
	t.Helper()

	select {
	case raw := <-ch.Receive():
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))

		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope received")
	}

	return Envelope{}
}

func TestSignalingRoutesByCamera(t *testing.T) {
	host, phone := transport.NewPipe(models.TransportLAN)
	sig := NewSignaling(host, logger.NewTestLogger())
	defer sig.Close()

	back, err := sig.Open("back")
	require.NoError(t, err)
	front, err := sig.Open("front")
	require.NoError(t, err)

	_, err = sig.Open("back")
	require.ErrorIs(t, err, errCameraBusy)

	sendRaw(t, phone, Envelope{Type: MsgKeepalive})
	sendRaw(t, phone, Envelope{Type: MsgOffer, Camera: "front", SDP: "f"})
	sendRaw(t, phone, Envelope{Type: MsgOffer, Camera: "back", SDP: "b"})

	select {
	case env := <-back.Recv():
		assert.Equal(t, "b", env.SDP)
	case <-time.After(time.Second):
		t.Fatal("back route starved")
	}

	select {
	case env := <-front.Recv():
		assert.Equal(t, "f", env.SDP)
	case <-time.After(time.Second):
		t.Fatal("front route starved")
	}

	require.NoError(t, back.Send(context.Background(), Envelope{Type: MsgAnswer, SDP: "a"}))

	env := recvEnvelope(t, phone)
	assert.Equal(t, MsgAnswer, env.Type)
	assert.Equal(t, "back", env.Camera)
}

func TestSignalingUnsolicitedStop(t *testing.T) {
	host, phone := transport.NewPipe(models.TransportLAN)
	sig := NewSignaling(host, logger.NewTestLogger())
	defer sig.Close()

	route, err := sig.Open("back")
	require.NoError(t, err)
	route.Close()
	route.Close()

	sendRaw(t, phone, Envelope{Type: MsgCandidate, Camera: "back"})
	sendRaw(t, phone, Envelope{Type: MsgStop, Camera: "back", Reason: "camera in use"})

	select {
	case env := <-sig.Unsolicited():
		assert.Equal(t, MsgStop, env.Type)
		assert.Equal(t, "camera in use", env.Reason)
	case <-time.After(time.Second):
		t.Fatal("stop not surfaced")
	}

	_, err = sig.Open("back")
	require.NoError(t, err, "route can be reopened after close")
}

func TestSignalingDoneFollowsChannel(t *testing.T) {
	host, phone := transport.NewPipe(models.TransportDirect)
	sig := NewSignaling(host, logger.NewTestLogger())

	require.NoError(t, phone.Close())

	select {
	case <-sig.Done():
	case <-time.After(time.Second):
		t.Fatal("signaling outlived its channel")
	}

	require.ErrorIs(t, sig.Keepalive(context.Background()), errSignalClosed)
}
