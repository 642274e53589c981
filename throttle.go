// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"sync"
	"sync/atomic"
)

// throttle runs functions in goroutines, at most Max at a time, and
// remembers the first error any of them returns.
type throttle struct {
	Max       int
	wg        sync.WaitGroup
	slots     chan struct{}
	setupOnce sync.Once
	firstErr  atomic.Value
	errorOnce sync.Once
}

// Go calls fn in a new goroutine once a slot is free. After an error
// has been returned, later functions are skipped.
func (t *throttle) Go(fn func() error) {
	t.setupOnce.Do(func() { t.slots = make(chan struct{}, t.Max) })
	t.wg.Add(1)
	t.slots <- struct{}{}
	go func() {
		defer func() {
			<-t.slots
			t.wg.Done()
		}()
		if t.Err() != nil {
			return
		}
		if err := fn(); err != nil {
			t.errorOnce.Do(func() { t.firstErr.Store(err) })
		}
	}()
}

func (t *throttle) Err() error {
	err, _ := t.firstErr.Load().(error)
	return err
}

// Wait waits for all functions started by Go and returns the first
// error.
func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}
