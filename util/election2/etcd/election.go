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

// Package etcd implements election2 on etcd leases and the concurrency
// package's elections.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/volquota/volquota/util/election2"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"k8s.io/klog/v2"
)

// Election is an election2.Election backed by etcd. Mastership is tied to a
// session lease, so a crashed master loses it once the lease expires.
type Election struct {
	resourceID string
	instanceID string
	lockFile   string

	session  *concurrency.Session
	election *concurrency.Election
}

// Await implements election2.Election.
func (e *Election) Await(ctx context.Context) error {
	return e.election.Campaign(ctx, e.instanceID)
}

// WithMastership implements election2.Election.
func (e *Election) WithMastership(ctx context.Context) (context.Context, error) {
	cctx, cancel := context.WithCancel(ctx)
	ch := e.election.Observe(cctx)
	// The revision at which this instance became the master, or 0 if it
	// never campaigned.
	rev := e.election.Rev()

	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case rsp, ok := <-ch:
		if !ok || rev == 0 || rsp.Kvs[0].CreateRevision != rev {
			cancel()
			return cctx, nil
		}
	}

	go func() {
		defer func() {
			cancel()
			klog.Infof("%s: canceled mastership context", e.resourceID)
		}()
		for {
			select {
			case rsp, ok := <-ch:
				if !ok {
					return
				}
				if rsp.Kvs[0].CreateRevision != rev {
					klog.Warningf("%s: mastership overtaken by %s", e.resourceID, rsp.Kvs[0].Value)
					return
				}
			case <-e.session.Done():
				klog.Warningf("%s: session lease expired", e.resourceID)
				return
			}
		}
	}()
	return cctx, nil
}

// Resign implements election2.Election.
func (e *Election) Resign(ctx context.Context) error {
	return e.election.Resign(ctx)
}

// Close implements election2.Election. Closing the session revokes its
// lease, which removes the election key even if resigning failed.
func (e *Election) Close(ctx context.Context) error {
	if err := e.Resign(ctx); err != nil && !errors.Is(err, concurrency.ErrElectionNotLeader) {
		klog.Errorf("%s: Resign(): %v", e.resourceID, err)
	}
	return e.session.Close()
}

// Factory creates etcd Elections under a common key directory.
type Factory struct {
	client     *clientv3.Client
	instanceID string
	lockDir    string
}

// NewFactory returns a Factory whose elections identify this instance as
// instanceID and keep their keys under lockDir.
func NewFactory(instanceID string, client *clientv3.Client, lockDir string) *Factory {
	return &Factory{client: client, instanceID: instanceID, lockDir: lockDir}
}

// NewElection implements election2.Factory.
func (f *Factory) NewElection(ctx context.Context, resourceID string) (election2.Election, error) {
	session, err := concurrency.NewSession(f.client)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd session: %w", err)
	}
	lockFile := fmt.Sprintf("%s/%s", strings.TrimRight(f.lockDir, "/"), resourceID)
	el := &Election{
		resourceID: resourceID,
		instanceID: f.instanceID,
		lockFile:   lockFile,
		session:    session,
		election:   concurrency.NewElection(session, lockFile),
	}
	klog.Infof("Election created for %s at %s", resourceID, lockFile)
	return el, nil
}
