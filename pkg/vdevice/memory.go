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

package vdevice

import (
	"fmt"
	"sync"
)

// MemoryControlNode selects MemoryController instead of the kernel driver.
const MemoryControlNode = "memory"

// MemoryController tracks nodes without touching the kernel. It backs dry
// runs on hosts without v4l2loopback and the tests of the packages above.
type MemoryController struct {
	mu    sync.Mutex
	next  int
	nodes map[int]NodeSpec
}

func NewMemoryController(firstIndex int) *MemoryController {
	return &MemoryController{next: firstIndex, nodes: make(map[int]NodeSpec)}
}

func (m *MemoryController) Create(spec NodeSpec) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.next
	m.next++
	m.nodes[idx] = spec

	return Node{Index: idx, Path: fmt.Sprintf("/dev/video%d", idx)}, nil
}

func (m *MemoryController) Destroy(node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[node.Index]; !ok {
		return fmt.Errorf("node %d not found", node.Index)
	}

	delete(m.nodes, node.Index)

	return nil
}

func (m *MemoryController) Exists(node Node) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.nodes[node.Index]

	return ok
}

// Live returns the number of nodes currently created.
func (m *MemoryController) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.nodes)
}
