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
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func poolConfig(size int) models.PoolConfig {
	return models.PoolConfig{
		Size:       size,
		NamePrefix: "webcamdirect",
		MinWidth:   100,
		MaxWidth:   1920,
		MinHeight:  100,
		MaxHeight:  1080,
		MaxBuffers: 2,
		MaxOpeners: 9,
	}
}

func newPool(t *testing.T, size int) (*Pool, *MemoryController) {
	t.Helper()

	ctrl := NewMemoryController(10)

	pool, err := NewPool(context.Background(), ctrl, poolConfig(size), logger.NewTestLogger(), nil)
	require.NoError(t, err)

	return pool, ctrl
}

func TestAcquireFirstFit(t *testing.T) {
	pool, _ := newPool(t, 3)

	a, err := pool.Acquire("phone: back", models.VideoMode{})
	require.NoError(t, err)
	b, err := pool.Acquire("phone: front", models.VideoMode{})
	require.NoError(t, err)

	assert.Equal(t, 10, a.Index)
	assert.Equal(t, "/dev/video10", a.Path)
	assert.Equal(t, 11, b.Index)

	require.True(t, pool.Release(a))

	c, err := pool.Acquire("phone: wide", models.VideoMode{})
	require.NoError(t, err)
	assert.Equal(t, 10, c.Index, "lowest free index is reused first")
	assert.NotEqual(t, a.Lease(), c.Lease())
}

func TestAcquireExhausted(t *testing.T) {
	pool, _ := newPool(t, 1)

	_, err := pool.Acquire("a", models.VideoMode{})
	require.NoError(t, err)

	_, err = pool.Acquire("b", models.VideoMode{})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, models.ErrDeviceExhausted)
}

func TestAcquireRespectsGeometryHint(t *testing.T) {
	pool, _ := newPool(t, 1)

	_, err := pool.Acquire("4k", models.VideoMode{Width: 3840, Height: 2160, FPS: 30})
	assert.ErrorIs(t, err, models.ErrDeviceExhausted)

	_, err = pool.Acquire("hd", models.VideoMode{Width: 1280, Height: 720, FPS: 30})
	assert.NoError(t, err)
}

func TestReleaseIdempotent(t *testing.T) {
	pool, _ := newPool(t, 2)

	dev, err := pool.Acquire("a", models.VideoMode{})
	require.NoError(t, err)

	assert.True(t, pool.Release(dev))
	assert.False(t, pool.Release(dev))
	assert.False(t, pool.Release(VirtualDevice{Index: 99}))
	assert.Equal(t, Stats{Size: 2, InUse: 0}, pool.Stats())
}

func TestStaleLeaseCannotFreeNewOwner(t *testing.T) {
	pool, _ := newPool(t, 1)

	first, err := pool.Acquire("first", models.VideoMode{})
	require.NoError(t, err)
	require.True(t, pool.Release(first))

	second, err := pool.Acquire("second", models.VideoMode{})
	require.NoError(t, err)
	require.Equal(t, first.Index, second.Index)

	assert.False(t, pool.Release(first), "duplicate teardown of the first stream")
	assert.Equal(t, 1, pool.Stats().InUse)

	_, err = pool.Acquire("third", models.VideoMode{})
	assert.ErrorIs(t, err, ErrExhausted)
}

// Concurrent acquire/release never hands one index to two holders and every
// lease is freed exactly once.
func TestConcurrentAcquireRelease(t *testing.T) {
	pool, _ := newPool(t, 4)

	var (
		mu      sync.Mutex
		holders = make(map[int]string)
		wg      sync.WaitGroup
	)

	for w := 0; w < 16; w++ {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(worker)))

			for i := 0; i < 200; i++ {
				dev, err := pool.Acquire("w", models.VideoMode{})
				if err != nil {
					assert.ErrorIs(t, err, ErrExhausted)
					continue
				}

				mu.Lock()
				owner, taken := holders[dev.Index]
				assert.False(t, taken, "index %d already held by %s", dev.Index, owner)
				holders[dev.Index] = "held"
				mu.Unlock()

				if rng.Intn(2) == 0 {
					time.Sleep(time.Microsecond)
				}

				mu.Lock()
				delete(holders, dev.Index)
				mu.Unlock()

				assert.True(t, pool.Release(dev))
				assert.False(t, pool.Release(dev))
			}
		}(w)
	}

	wg.Wait()
	assert.Zero(t, pool.Stats().InUse)
}

func TestWatchSignalsRelease(t *testing.T) {
	pool, _ := newPool(t, 1)

	ch, stop := pool.Watch()
	defer stop()

	dev, err := pool.Acquire("a", models.VideoMode{})
	require.NoError(t, err)

	select {
	case <-ch:
		t.Fatal("acquire must not signal")
	default:
	}

	pool.Release(dev)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("release not signalled")
	}

	pool.Release(dev)

	select {
	case <-ch:
		t.Fatal("no-op release must not signal")
	default:
	}
}

func TestCloseDestroysNodes(t *testing.T) {
	pool, ctrl := newPool(t, 3)
	require.Equal(t, 3, ctrl.Live())

	_, err := pool.Acquire("left behind", models.VideoMode{})
	require.NoError(t, err)

	require.NoError(t, pool.Close())
	assert.Zero(t, ctrl.Live())
	require.NoError(t, pool.Close())

	_, err = pool.Acquire("late", models.VideoMode{})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestCloseSkipsNodesRemovedExternally(t *testing.T) {
	pool, ctrl := newPool(t, 2)

	dev, err := pool.Acquire("phone: back", models.VideoMode{})
	require.NoError(t, err)
	require.NoError(t, ctrl.Destroy(Node{Index: dev.Index, Path: dev.Path}))
	require.Equal(t, 1, ctrl.Live())

	require.NoError(t, pool.Close())
	assert.Zero(t, ctrl.Live())
}

func TestCloseAsksDriverBeforeDestroy(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockController(ctrl)

	kept := Node{Index: 0, Path: "/dev/video0"}
	gone := Node{Index: 1, Path: "/dev/video1"}

	mock.EXPECT().Create(gomock.Any()).Return(kept, nil)
	mock.EXPECT().Create(gomock.Any()).Return(gone, nil)

	pool, err := NewPool(context.Background(), mock, poolConfig(2), logger.NewTestLogger(), nil)
	require.NoError(t, err)

	mock.EXPECT().Exists(kept).Return(true)
	mock.EXPECT().Exists(gone).Return(false)
	mock.EXPECT().Destroy(kept).Return(nil)

	require.NoError(t, pool.Close())
}

func TestNewPoolCleansUpOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockController(ctrl)

	errDriver := errors.New("driver refused")

	mock.EXPECT().Create(gomock.Any()).Return(Node{Index: 3, Path: "/dev/video3"}, nil)
	mock.EXPECT().Create(gomock.Any()).Return(Node{}, errDriver)
	mock.EXPECT().Destroy(Node{Index: 3, Path: "/dev/video3"}).Return(nil)

	_, err := NewPool(context.Background(), mock, poolConfig(2), logger.NewTestLogger(), nil)
	assert.ErrorIs(t, err, errDriver)
}

func TestNewPoolNodeSpec(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockController(ctrl)

	mock.EXPECT().Create(NodeSpec{
		Label:      "webcamdirect 0",
		MinWidth:   100,
		MaxWidth:   1920,
		MinHeight:  100,
		MaxHeight:  1080,
		MaxBuffers: 2,
		MaxOpeners: 9,
	}).Return(Node{Index: 0, Path: "/dev/video0"}, nil)

	pool, err := NewPool(context.Background(), mock, poolConfig(1), logger.NewTestLogger(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Stats().Size)
}
