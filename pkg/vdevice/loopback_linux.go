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

//go:build linux

package vdevice

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Control requests understood by /dev/v4l2loopback.
const (
	ctlAdd    = 0x4C80
	ctlRemove = 0x4C81
	ctlQuery  = 0x4C82
)

const cardLabelLen = 32

var errLabelTooLong = errors.New("card label too long")

// loopbackConfig mirrors struct v4l2_loopback_config.
type loopbackConfig struct {
	OutputNr        int32
	Unused          int32
	CardLabel       [cardLabelLen]byte
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
	MaxBuffers      int32
	MaxOpeners      int32
	Debug           int32
	AnnounceAllCaps int32
}

// LoopbackController drives the v4l2loopback control node.
type LoopbackController struct {
	path string
}

// NewLoopbackController checks that the control node is usable.
func NewLoopbackController(path string) (*LoopbackController, error) {
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return nil, fmt.Errorf("loopback control node %s: %w", path, err)
	}

	return &LoopbackController{path: path}, nil
}

func (c *LoopbackController) withControl(fn func(fd int) error) error {
	fd, err := unix.Open(c.path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer func() { _ = unix.Close(fd) }()

	return fn(fd)
}

// ioctlConfig issues req with conf as argument and returns the ioctl result.
func (c *LoopbackController) ioctlConfig(req uint, conf *loopbackConfig) (int, error) {
	ret := -1

	err := c.withControl(func(fd int) error {
		r1, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(conf)))
		if errno != 0 {
			return errno
		}

		ret = int(r1)

		return nil
	})

	return ret, err
}

// Create implements Controller.
func (c *LoopbackController) Create(spec NodeSpec) (Node, error) {
	if len(spec.Label) >= cardLabelLen {
		return Node{}, fmt.Errorf("%w: %q", errLabelTooLong, spec.Label)
	}

	// AnnounceAllCaps stays 0 so the node only announces CAPTURE once a
	// producer is attached, which browsers require.
	conf := loopbackConfig{
		OutputNr:   -1,
		Unused:     -1,
		MinWidth:   spec.MinWidth,
		MaxWidth:   spec.MaxWidth,
		MinHeight:  spec.MinHeight,
		MaxHeight:  spec.MaxHeight,
		MaxBuffers: spec.MaxBuffers,
		MaxOpeners: spec.MaxOpeners,
		Debug:      -1,
	}
	copy(conf.CardLabel[:], spec.Label)

	nr, err := c.ioctlConfig(ctlAdd, &conf)
	if err != nil {
		return Node{}, fmt.Errorf("create loopback node %q: %w", spec.Label, err)
	}

	return Node{Index: nr, Path: fmt.Sprintf("/dev/video%d", nr)}, nil
}

// Destroy implements Controller.
func (c *LoopbackController) Destroy(node Node) error {
	err := c.withControl(func(fd int) error {
		return unix.IoctlSetInt(fd, ctlRemove, node.Index)
	})
	if err != nil {
		return fmt.Errorf("remove loopback node %d: %w", node.Index, err)
	}

	return nil
}

// Exists asks the driver whether node is still registered.
func (c *LoopbackController) Exists(node Node) bool {
	conf := loopbackConfig{OutputNr: int32(node.Index)}

	_, err := c.ioctlConfig(ctlQuery, &conf)

	return err == nil
}
