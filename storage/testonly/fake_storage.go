// Copyright 2026 The Volquota Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testonly holds test helpers shared by storage implementations and
// their callers.
package testonly

import (
	"context"
	"errors"

	"github.com/volquota/volquota/storage"
)

// ErrNoMoreTX is returned by FakeQuotaStorage when it runs out of scripted
// transactions.
var ErrNoMoreTX = errors.New("no more transactions")

// FakeQuotaStorage hands out scripted transactions, in order, to successive
// transaction calls. It is typically fed with gomock transactions.
type FakeQuotaStorage struct {
	TX         []storage.QuotaTX
	ReadOnlyTX []storage.ReadOnlyQuotaTX

	TXErr         []error
	ReadOnlyTXErr []error
}

// ReadWriteTransaction runs f against the next scripted QuotaTX.
func (f *FakeQuotaStorage) ReadWriteTransaction(ctx context.Context, fn storage.QuotaTXFunc) error {
	if len(f.TXErr) > 0 {
		err := f.TXErr[0]
		f.TXErr = f.TXErr[1:]
		if err != nil {
			return err
		}
	}
	if len(f.TX) == 0 {
		return ErrNoMoreTX
	}
	tx := f.TX[0]
	f.TX = f.TX[1:]
	return fn(ctx, tx)
}

// ReadOnlyTransaction runs f against the next scripted ReadOnlyQuotaTX.
func (f *FakeQuotaStorage) ReadOnlyTransaction(ctx context.Context, fn storage.ReadOnlyQuotaTXFunc) error {
	if len(f.ReadOnlyTXErr) > 0 {
		err := f.ReadOnlyTXErr[0]
		f.ReadOnlyTXErr = f.ReadOnlyTXErr[1:]
		if err != nil {
			return err
		}
	}
	if len(f.ReadOnlyTX) == 0 {
		return ErrNoMoreTX
	}
	tx := f.ReadOnlyTX[0]
	f.ReadOnlyTX = f.ReadOnlyTX[1:]
	return fn(ctx, tx)
}

// CheckDatabaseAccessible always succeeds.
func (f *FakeQuotaStorage) CheckDatabaseAccessible(context.Context) error {
	return nil
}
