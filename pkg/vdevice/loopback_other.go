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

//go:build !linux

package vdevice

import "errors"

var errUnsupported = errors.New("v4l2loopback is only available on linux")

type LoopbackController struct{}

func NewLoopbackController(string) (*LoopbackController, error) {
	return nil, errUnsupported
}

func (*LoopbackController) Create(NodeSpec) (Node, error) { return Node{}, errUnsupported }
func (*LoopbackController) Destroy(Node) error            { return errUnsupported }
func (*LoopbackController) Exists(Node) bool              { return false }
