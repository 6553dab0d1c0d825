// SPDX-License-Identifier: Apache-2.0

// Package datahelpers provides the batched data-transform primitives user
// migrations call from their up/down Go functions: backfilling a new
// column, renaming/splitting/merging columns, copying data between tables,
// converting a column to/from JSON, and de-duplicating rows. Grounded on
// the teacher's pkg/backfill (batch-by-primary-key loop, CallbackFn
// progress reporting, text/template-built batch SQL).
package datahelpers

import "time"

// DefaultBatchSize mirrors the teacher's pkg/backfill.DefaultBatchSize.
const DefaultBatchSize = 1000

// CallbackFn is invoked after each batch, reporting progress.
type CallbackFn func(done, total int64)

// Options configures a batched operation.
type Options struct {
	batchSize  int
	batchDelay time.Duration
	callbacks  []CallbackFn
	where      string
}

// OptionFn mutates an Options under construction.
type OptionFn func(*Options)

// NewOptions builds an Options with the teacher's defaults (batch size
// 1000, no delay between batches).
func NewOptions(opts ...OptionFn) *Options {
	o := &Options{batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBatchSize sets the number of rows touched per batch.
func WithBatchSize(n int) OptionFn {
	return func(o *Options) { o.batchSize = n }
}

// WithBatchDelay sets the pause between batches, easing lock contention on
// a live table.
func WithBatchDelay(d time.Duration) OptionFn {
	return func(o *Options) { o.batchDelay = d }
}

// WithCallbacks registers progress callbacks, invoked after every batch.
func WithCallbacks(cbs ...CallbackFn) OptionFn {
	return func(o *Options) { o.callbacks = cbs }
}

// WithWhere restricts an operation to rows matching an additional raw SQL
// condition, ANDed onto whatever predicate the helper already applies
// (spec.md §4.8's optional `where` on backfill/transform/copyData).
func WithWhere(sql string) OptionFn {
	return func(o *Options) { o.where = sql }
}

func (o *Options) notify(done, total int64) {
	for _, cb := range o.callbacks {
		cb(done, total)
	}
}
