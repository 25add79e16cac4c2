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
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
)

const (
	ffmpegCloseGrace = 2 * time.Second
	ivfHeaderSize    = 32
	ivfFrameHeader   = 12
	rtpVideoClock    = 90000
)

var (
	errGraphExited = errors.New("ffmpeg exited")
	errDecode      = errors.New("decode error")
)

// FFmpegFactory runs one ffmpeg process per graph, feeding encoded frames on
// stdin and writing raw frames to the v4l2 node.
type FFmpegFactory struct {
	path   string
	logger logger.Logger
}

func NewFFmpegFactory(cfg models.PipelineConfig, log logger.Logger) *FFmpegFactory {
	return &FFmpegFactory{path: cfg.FFmpegPath, logger: log}
}

func ffmpegArgs(spec GraphSpec) ([]string, error) {
	var input string

	switch strings.ToUpper(spec.Codec) {
	case "H264":
		input = "h264"
	case "VP8":
		input = "ivf"
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedCodec, spec.Codec)
	}

	pixfmt := spec.PixelFormat
	if pixfmt == "" {
		pixfmt = "yuv420p"
	}

	filter := fmt.Sprintf("scale=%d:%d", spec.Mode.Width, spec.Mode.Height)
	if spec.Mode.FPS > 0 {
		filter += ",fps=" + strconv.FormatUint(uint64(spec.Mode.FPS), 10)
	}

	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-f", input,
		"-i", "pipe:0",
		"-vf", filter,
		"-pix_fmt", pixfmt,
		"-f", "v4l2",
		spec.DevicePath,
	}, nil
}

func (f *FFmpegFactory) Build(ctx context.Context, spec GraphSpec) (Graph, error) {
	args, err := ffmpegArgs(spec)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, f.path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", f.path, err)
	}

	g := &ffmpegGraph{
		cmd:    cmd,
		stdin:  stdin,
		errs:   make(chan error, 1),
		exited: make(chan struct{}),
		camera: spec.Camera,
		logger: f.logger,
	}

	if strings.EqualFold(spec.Codec, "VP8") {
		g.ivf = &ivfFramer{width: uint16(spec.Mode.Width), height: uint16(spec.Mode.Height)}
	}

	go g.scan(stderr)
	go g.wait()

	return g, nil
}

type ffmpegGraph struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	ivf    *ivfFramer
	errs   chan error
	exited chan struct{}
	camera string
	logger logger.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	closing   bool
}

func (g *ffmpegGraph) Errors() <-chan error { return g.errs }

// report coalesces bursts: ffmpeg prints several lines per corrupt frame.
func (g *ffmpegGraph) report(err error) {
	select {
	case g.errs <- err:
	default:
	}
}

func (g *ffmpegGraph) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		g.logger.Debug().Str("camera", g.camera).Str("line", line).Msg("ffmpeg")
		g.report(fmt.Errorf("%w: %s", errDecode, line))
	}
}

func (g *ffmpegGraph) wait() {
	err := g.cmd.Wait()

	g.mu.Lock()
	closing := g.closing
	g.mu.Unlock()

	if !closing {
		g.report(fmt.Errorf("%w: %v", errGraphExited, err))
	}

	close(g.exited)
}

func (g *ffmpegGraph) WriteFrame(frame []byte, timestamp uint32) error {
	if g.ivf != nil {
		buf := g.ivf.frame(frame, timestamp)
		_, err := g.stdin.Write(buf)

		return err
	}

	_, err := g.stdin.Write(frame)

	return err
}

// Close ends the input stream and waits for ffmpeg to flush the device. A
// process that does not exit within the grace period is killed.
func (g *ffmpegGraph) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closing = true
		g.mu.Unlock()

		_ = g.stdin.Close()

		select {
		case <-g.exited:
		case <-time.After(ffmpegCloseGrace):
			_ = g.cmd.Process.Kill()
			<-g.exited
		}
	})

	return nil
}

// ivfFramer wraps VP8 frames in the IVF container ffmpeg reads from a pipe.
type ivfFramer struct {
	width, height uint16
	wroteHeader   bool
	first         uint32
}

func (v *ivfFramer) frame(data []byte, timestamp uint32) []byte {
	size := ivfFrameHeader + len(data)
	if !v.wroteHeader {
		size += ivfHeaderSize
	}

	buf := make([]byte, 0, size)

	if !v.wroteHeader {
		v.wroteHeader = true
		v.first = timestamp

		hdr := make([]byte, ivfHeaderSize)
		copy(hdr[0:4], "DKIF")
		binary.LittleEndian.PutUint16(hdr[6:], ivfHeaderSize)
		copy(hdr[8:12], "VP80")
		binary.LittleEndian.PutUint16(hdr[12:], v.width)
		binary.LittleEndian.PutUint16(hdr[14:], v.height)
		binary.LittleEndian.PutUint32(hdr[16:], rtpVideoClock)
		binary.LittleEndian.PutUint32(hdr[20:], 1)
		buf = append(buf, hdr...)
	}

	var fh [ivfFrameHeader]byte
	binary.LittleEndian.PutUint32(fh[0:], uint32(len(data))) //nolint:gosec // frames are far below 4GiB
	binary.LittleEndian.PutUint64(fh[4:], uint64(timestamp-v.first))

	buf = append(buf, fh[:]...)

	return append(buf, data...)
}
