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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/pion/sdp/v3"
)

var (
	ErrNoCompatibleCodec = errors.New("no compatible codec")
	ErrNoCompatibleMode  = errors.New("no mode within host limits")
	ErrRemoteRejected    = errors.New("remote rejected the stream")
	ErrOfferTimeout      = errors.New("timed out waiting for offer")
	ErrCandidateTimeout  = errors.New("candidate exchange timed out")
	ErrPeerFailed        = errors.New("peer connection failed")
	ErrChannelLost       = errors.New("signaling channel lost")
	errMalformedOffer    = errors.New("malformed offer")
)

// Limits caps the modes the host accepts. A zero field is unbounded.
type Limits struct {
	MaxWidth  uint32
	MaxHeight uint32
	MaxFPS    uint32
}

func (l Limits) allows(m models.VideoMode) bool {
	if m.IsZero() {
		return false
	}

	return (l.MaxWidth == 0 || m.Width <= l.MaxWidth) &&
		(l.MaxHeight == 0 || m.Height <= l.MaxHeight) &&
		(l.MaxFPS == 0 || m.FPS <= l.MaxFPS)
}

// SelectMode picks the highest resolution, then frame rate, that the host
// accepts out of the advertised modes.
func SelectMode(modes []models.VideoMode, limits Limits) (models.VideoMode, error) {
	var best models.VideoMode

	for _, m := range modes {
		if limits.allows(m) && m.Better(best) {
			best = m
		}
	}

	if best.IsZero() {
		return models.VideoMode{}, ErrNoCompatibleMode
	}

	return best, nil
}

// SelectCodec returns the first host-preferred codec the camera lists. A
// camera listing no codecs accepts the host's first choice.
func SelectCodec(offered, preferred []string) (string, error) {
	if len(preferred) == 0 {
		return "", ErrNoCompatibleCodec
	}

	if len(offered) == 0 {
		return strings.ToUpper(preferred[0]), nil
	}

	for _, want := range preferred {
		for _, have := range offered {
			if strings.EqualFold(want, have) {
				return strings.ToUpper(want), nil
			}
		}
	}

	return "", fmt.Errorf("%w: camera offers %v, host accepts %v", ErrNoCompatibleCodec, offered, preferred)
}

// offerCodecs lists the video codec names carried by an SDP offer.
func offerCodecs(offer string) ([]string, error) {
	var desc sdp.SessionDescription
	if err := desc.UnmarshalString(offer); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedOffer, err)
	}

	var names []string

	for _, md := range desc.MediaDescriptions {
		if md.MediaName.Media != "video" {
			continue
		}

		for _, format := range md.MediaName.Formats {
			pt, err := strconv.ParseUint(format, 10, 8)
			if err != nil {
				continue
			}

			codec, err := desc.GetCodecForPayloadType(uint8(pt))
			if err != nil {
				continue
			}

			names = append(names, codec.Name)
		}
	}

	return names, nil
}

// checkOffer verifies the offer carries codec.
func checkOffer(offer, codec string) error {
	names, err := offerCodecs(offer)
	if err != nil {
		return err
	}

	for _, name := range names {
		if strings.EqualFold(name, codec) {
			return nil
		}
	}

	return fmt.Errorf("%w: offer carries %v, want %s", ErrNoCompatibleCodec, names, codec)
}
