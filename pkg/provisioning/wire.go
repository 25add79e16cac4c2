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

	"github.com/carverauto/webcamdirect/pkg/models"
	"google.golang.org/protobuf/encoding/protowire"
)

// SchemaVersion is the only record layout this host understands.
const SchemaVersion = 1

// minRecordSize is the smallest payload that could carry a schema version,
// a device identifier, one camera and a version.
const minRecordSize = 12

// Field numbers of the provisioning schema. Unknown fields are skipped so a
// phone may add fields without breaking older hosts.
//
//	message Record {
//	  uint32 schema_version = 1;
//	  string device_id = 2;
//	  string display_name = 3;
//	  repeated Camera cameras = 4;
//	  Hints hints = 5;
//	  uint64 version = 6;
//	}
//	message Camera { string name = 1; repeated Mode modes = 2; repeated string codecs = 3; }
//	message Mode { uint32 width = 1; uint32 height = 2; uint32 fps = 3; }
//	message Hints { Direct direct = 1; Lan lan = 2; }
//	message Direct { string ssid = 1; string passphrase = 2; string address = 3; }
//	message Lan { string address = 1; }
//	message Advertisement { string host_id = 1; string host_name = 2; string connection_type = 3; }
//	message Chunk { uint32 remaining = 1; bytes data = 2; }
const (
	fieldSchemaVersion protowire.Number = 1
	fieldDeviceID      protowire.Number = 2
	fieldDisplayName   protowire.Number = 3
	fieldCamera        protowire.Number = 4
	fieldHints         protowire.Number = 5
	fieldVersion       protowire.Number = 6

	fieldCameraName  protowire.Number = 1
	fieldCameraMode  protowire.Number = 2
	fieldCameraCodec protowire.Number = 3
	fieldModeWidth   protowire.Number = 1
	fieldModeHeight  protowire.Number = 2
	fieldModeFPS     protowire.Number = 3
	fieldHintsDirect protowire.Number = 1
	fieldHintsLAN    protowire.Number = 2
	fieldDirectSSID  protowire.Number = 1
	fieldDirectPass  protowire.Number = 2
	fieldDirectAddr  protowire.Number = 3
	fieldLANAddr     protowire.Number = 1
	fieldAdvHostID   protowire.Number = 1
	fieldAdvHostName protowire.Number = 2
	fieldAdvConnType protowire.Number = 3
	fieldChunkRemain protowire.Number = 1
	fieldChunkData   protowire.Number = 2
)

var (
	errUndersized      = errors.New("payload undersized")
	errSchemaVersion   = errors.New("unsupported schema version")
	errMissingDeviceID = errors.New("missing device id")
	errMissingVersion  = errors.New("missing provisioning version")
	errNoCameras       = errors.New("no camera capabilities")
	errBadCamera       = errors.New("invalid camera capability")
	errWireType        = errors.New("unexpected wire type")
)

// EncodeRecord serializes a record in the provisioning wire format.
func EncodeRecord(rec *models.ProvisioningRecord) []byte {
	var b []byte

	b = appendVarintField(b, fieldSchemaVersion, SchemaVersion)
	b = appendStringField(b, fieldDeviceID, rec.DeviceID)
	b = appendStringField(b, fieldDisplayName, rec.DisplayName)

	for i := range rec.Cameras {
		b = appendMessageField(b, fieldCamera, encodeCamera(&rec.Cameras[i]))
	}

	if hints := encodeHints(&rec.Hints); len(hints) > 0 {
		b = appendMessageField(b, fieldHints, hints)
	}

	b = appendVarintField(b, fieldVersion, rec.Version)

	return b
}

func encodeCamera(c *models.CameraCapability) []byte {
	b := appendStringField(nil, fieldCameraName, c.Name)

	for _, m := range c.Modes {
		var mb []byte
		mb = appendVarintField(mb, fieldModeWidth, uint64(m.Width))
		mb = appendVarintField(mb, fieldModeHeight, uint64(m.Height))
		mb = appendVarintField(mb, fieldModeFPS, uint64(m.FPS))
		b = appendMessageField(b, fieldCameraMode, mb)
	}

	for _, codec := range c.Codecs {
		b = appendStringField(b, fieldCameraCodec, codec)
	}

	return b
}

func encodeHints(h *models.TransportHints) []byte {
	var b []byte

	if h.Direct != nil {
		var db []byte
		db = appendStringField(db, fieldDirectSSID, h.Direct.SSID)
		db = appendStringField(db, fieldDirectPass, h.Direct.Passphrase)
		db = appendStringField(db, fieldDirectAddr, h.Direct.Address)
		b = appendMessageField(b, fieldHintsDirect, db)
	}

	if h.LAN != nil {
		b = appendMessageField(b, fieldHintsLAN, appendStringField(nil, fieldLANAddr, h.LAN.Address))
	}

	return b
}

// DecodeRecord parses and validates a provisioning payload. Every failure
// wraps models.ErrProvisioningMalformed.
func DecodeRecord(payload []byte) (*models.ProvisioningRecord, error) {
	if len(payload) < minRecordSize {
		return nil, malformed(fmt.Errorf("%w: %d bytes", errUndersized, len(payload)))
	}

	rec := &models.ProvisioningRecord{}

	var schema uint64

	err := walk(payload, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSchemaVersion:
			return consumeVarint(typ, b, &schema)
		case fieldDeviceID:
			return consumeString(typ, b, &rec.DeviceID)
		case fieldDisplayName:
			return consumeString(typ, b, &rec.DisplayName)
		case fieldCamera:
			var raw []byte

			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}

			camera, err := decodeCamera(raw)
			if err != nil {
				return n, err
			}

			rec.Cameras = append(rec.Cameras, camera)

			return n, nil
		case fieldHints:
			var raw []byte

			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}

			return n, decodeHints(raw, &rec.Hints)
		case fieldVersion:
			return consumeVarint(typ, b, &rec.Version)
		}

		return skip, nil
	})
	if err != nil {
		return nil, malformed(err)
	}

	if err := validateRecord(rec, schema); err != nil {
		return nil, malformed(err)
	}

	if rec.DisplayName == "" {
		rec.DisplayName = rec.DeviceID
	}

	return rec, nil
}

// Validate applies the decoder's checks to a record that arrived by another
// route, such as the host API.
func Validate(rec *models.ProvisioningRecord) error {
	if err := validateRecord(rec, SchemaVersion); err != nil {
		return malformed(err)
	}

	if rec.DisplayName == "" {
		rec.DisplayName = rec.DeviceID
	}

	return nil
}

func validateRecord(rec *models.ProvisioningRecord, schema uint64) error {
	switch {
	case schema != SchemaVersion:
		return fmt.Errorf("%w: %d", errSchemaVersion, schema)
	case rec.DeviceID == "":
		return errMissingDeviceID
	case rec.Version == 0:
		return errMissingVersion
	case len(rec.Cameras) == 0:
		return errNoCameras
	}

	seen := make(map[string]bool, len(rec.Cameras))

	for _, c := range rec.Cameras {
		if c.Name == "" || seen[c.Name] || len(c.Modes) == 0 {
			return fmt.Errorf("%w: %q", errBadCamera, c.Name)
		}

		for _, m := range c.Modes {
			if m.IsZero() {
				return fmt.Errorf("%w: %q has empty mode %s", errBadCamera, c.Name, m)
			}
		}

		seen[c.Name] = true
	}

	return nil
}

func decodeCamera(b []byte) (models.CameraCapability, error) {
	var c models.CameraCapability

	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldCameraName:
			return consumeString(typ, b, &c.Name)
		case fieldCameraMode:
			var raw []byte

			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}

			m, err := decodeMode(raw)
			c.Modes = append(c.Modes, m)

			return n, err
		case fieldCameraCodec:
			var codec string

			n, err := consumeString(typ, b, &codec)
			c.Codecs = append(c.Codecs, codec)

			return n, err
		}

		return skip, nil
	})

	return c, err
}

func decodeMode(b []byte) (models.VideoMode, error) {
	var w, h, fps uint64

	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldModeWidth:
			return consumeVarint(typ, b, &w)
		case fieldModeHeight:
			return consumeVarint(typ, b, &h)
		case fieldModeFPS:
			return consumeVarint(typ, b, &fps)
		}

		return skip, nil
	})

	return models.VideoMode{Width: uint32(w), Height: uint32(h), FPS: uint32(fps)}, err
}

func decodeHints(b []byte, h *models.TransportHints) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var raw []byte

		switch num {
		case fieldHintsDirect:
			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}

			h.Direct = &models.DirectHint{}

			return n, walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fieldDirectSSID:
					return consumeString(typ, b, &h.Direct.SSID)
				case fieldDirectPass:
					return consumeString(typ, b, &h.Direct.Passphrase)
				case fieldDirectAddr:
					return consumeString(typ, b, &h.Direct.Address)
				}

				return skip, nil
			})
		case fieldHintsLAN:
			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}

			h.LAN = &models.LANHint{}

			return n, walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == fieldLANAddr {
					return consumeString(typ, b, &h.LAN.Address)
				}

				return skip, nil
			})
		}

		return skip, nil
	})
}

// Advertisement is what the host publishes to become discoverable.
type Advertisement struct {
	HostID         string
	HostName       string
	ConnectionType string
}

func EncodeAdvertisement(a Advertisement) []byte {
	var b []byte
	b = appendStringField(b, fieldAdvHostID, a.HostID)
	b = appendStringField(b, fieldAdvHostName, a.HostName)
	b = appendStringField(b, fieldAdvConnType, a.ConnectionType)

	return b
}

func DecodeAdvertisement(payload []byte) (Advertisement, error) {
	var a Advertisement

	err := walk(payload, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAdvHostID:
			return consumeString(typ, b, &a.HostID)
		case fieldAdvHostName:
			return consumeString(typ, b, &a.HostName)
		case fieldAdvConnType:
			return consumeString(typ, b, &a.ConnectionType)
		}

		return skip, nil
	})

	return a, err
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", models.ErrProvisioningMalformed, err)
}

// skip tells walk to step over a field the callback does not handle.
const skip = -1

// walk iterates the top-level fields of a message. fn returns how many bytes
// of b it consumed, or skip.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}

		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}

		if n == skip {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return protowire.ParseError(n)
		}

		b = b[n:]
	}

	return nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errWireType
	}

	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}

	*dst = v

	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, errWireType
	}

	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}

	*dst = v

	return n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	var raw []byte

	n, err := consumeBytes(typ, b, &raw)
	if err == nil {
		*dst = string(raw)
	}

	return n, err
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
