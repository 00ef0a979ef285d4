/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Comcast/voxmatch/intent"

	"github.com/gorhill/cronexpr"
)

// Loader makes a new compiled intent Set.  Typically it rereads the
// intents and vocabulary files (or a vocabulary store).
type Loader func(ctx context.Context) (*intent.Set, error)

// Reloader periodically calls a Loader and swaps the result into a
// Service.
//
// A failed load leaves the Service with the Set it already had.
type Reloader struct {
	Service *Service
	Load    Loader

	expr *cronexpr.Expression

	sync.Mutex

	// LastErr is the error from the most recent load (if any).
	LastErr error

	// Loads counts successful loads.
	Loads int
}

// NewReloader parses the cron expression (for example, "*/5 * * * *"
// or "@hourly").
func NewReloader(schedule string, svc *Service, load Loader) (*Reloader, error) {
	if svc == nil || load == nil {
		return nil, errors.New("reloader needs a service and a loader")
	}
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, err
	}
	return &Reloader{
		Service: svc,
		Load:    load,
		expr:    expr,
	}, nil
}

// Next returns the next scheduled reload after the given time.
func (r *Reloader) Next(after time.Time) time.Time {
	return r.expr.Next(after)
}

// Reload loads and swaps right now.
func (r *Reloader) Reload(ctx context.Context) error {
	set, err := r.Load(ctx)
	if err == nil {
		err = r.Service.Swap(set)
	}

	r.Lock()
	r.LastErr = err
	if err == nil {
		r.Loads++
	}
	r.Unlock()

	if err != nil {
		log.Printf("reload failed (keeping current intents): %s", err)
		return err
	}
	r.Service.Logf("reloaded")
	return nil
}

// Run reloads on schedule until the context is done.
func (r *Reloader) Run(ctx context.Context) error {
	for {
		next := r.expr.Next(time.Now())
		if next.IsZero() {
			return errors.New("schedule has no next time")
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			r.Reload(ctx)
		}
	}
}
