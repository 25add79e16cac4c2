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

//go:generate mockgen -destination=mock_vdevice.go -package=vdevice github.com/carverauto/webcamdirect/pkg/vdevice Controller

// Package vdevice owns the fixed set of kernel loopback camera nodes.
package vdevice

// NodeSpec parameterizes a loopback node at creation.
type NodeSpec struct {
	Label      string
	MinWidth   uint32
	MaxWidth   uint32
	MinHeight  uint32
	MaxHeight  uint32
	MaxBuffers int32
	MaxOpeners int32
}

// Node is a created loopback device.
type Node struct {
	Index int
	Path  string
}

// Controller creates and destroys loopback nodes through the driver's control surface.
type Controller interface {
	Create(spec NodeSpec) (Node, error)
	Destroy(node Node) error
	// Exists reports whether the driver still knows node.
	Exists(node Node) bool
}
