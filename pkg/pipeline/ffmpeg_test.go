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
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFmpegArgs(t *testing.T) {
	args, err := ffmpegArgs(GraphSpec{
		Codec:      "H264",
		Mode:       models.VideoMode{Width: 1280, Height: 720, FPS: 30},
		DevicePath: "/dev/video10",
	})
	require.NoError(t, err)

	assert.Contains(t, args, "scale=1280:720,fps=30")
	assert.Contains(t, args, "yuv420p")
	assert.Equal(t, "/dev/video10", args[len(args)-1])
	assert.Equal(t, []string{"-f", "h264", "-i", "pipe:0"}, args[7:11])

	args, err = ffmpegArgs(GraphSpec{Codec: "vp8", Mode: models.VideoMode{Width: 640, Height: 480}, PixelFormat: "rgb24"})
	require.NoError(t, err)
	assert.Contains(t, args, "ivf")
	assert.Contains(t, args, "scale=640:480")
	assert.Contains(t, args, "rgb24")

	_, err = ffmpegArgs(GraphSpec{Codec: "H265"})
	require.ErrorIs(t, err, errUnsupportedCodec)
}

func TestIVFFramer(t *testing.T) {
	f := &ivfFramer{width: 640, height: 480}

	first := f.frame([]byte{1, 2, 3}, 9000)
	require.Len(t, first, ivfHeaderSize+ivfFrameHeader+3)
	assert.Equal(t, "DKIF", string(first[0:4]))
	assert.Equal(t, "VP80", string(first[8:12]))
	assert.Equal(t, uint16(640), binary.LittleEndian.Uint16(first[12:]))
	assert.Equal(t, uint16(480), binary.LittleEndian.Uint16(first[14:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(first[ivfHeaderSize:]))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(first[ivfHeaderSize+4:]))

	second := f.frame([]byte{4}, 12000)
	require.Len(t, second, ivfFrameHeader+1)
	assert.Equal(t, uint64(3000), binary.LittleEndian.Uint64(second[4:]))
}

func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec // test executable

	return path
}

func TestFFmpegGraphReportsDiagnostics(t *testing.T) {
	path := fakeFFmpeg(t, `echo "[h264 @ 0x1] error while decoding MB 3 4" >&2
cat > /dev/null`)

	factory := NewFFmpegFactory(models.PipelineConfig{FFmpegPath: path}, logger.NewTestLogger())

	g, err := factory.Build(context.Background(), GraphSpec{
		Camera:     "back",
		Codec:      "H264",
		Mode:       models.VideoMode{Width: 320, Height: 240},
		DevicePath: "/dev/null",
	})
	require.NoError(t, err)

	select {
	case err := <-g.Errors():
		require.ErrorIs(t, err, errDecode)
		assert.Contains(t, err.Error(), "error while decoding")
	case <-time.After(2 * time.Second):
		t.Fatal("no diagnostic reported")
	}

	require.NoError(t, g.WriteFrame([]byte{0, 0, 0, 1, 0x65}, 0))
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
}

func TestFFmpegGraphExitReported(t *testing.T) {
	path := fakeFFmpeg(t, "exit 1")

	factory := NewFFmpegFactory(models.PipelineConfig{FFmpegPath: path}, logger.NewTestLogger())

	g, err := factory.Build(context.Background(), GraphSpec{Codec: "VP8", DevicePath: "/dev/null"})
	require.NoError(t, err)

	select {
	case err := <-g.Errors():
		require.ErrorIs(t, err, errGraphExited)
	case <-time.After(2 * time.Second):
		t.Fatal("exit not reported")
	}

	require.NoError(t, g.Close())
}
