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

// Package inventory recomputes block-storage consumption from the volume
// inventory database. Its syncers are the ground truth used to refresh quota
// usage rows.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/volquota/volquota/quota"
)

const (
	volumeUsageQuery   = "SELECT COUNT(*), COALESCE(SUM(size), 0) FROM volumes WHERE project_id = ? AND deleted = ?"
	snapshotUsageQuery = "SELECT COUNT(*), COALESCE(SUM(volume_size), 0) FROM snapshots WHERE project_id = ? AND deleted = ?"
	backupUsageQuery   = "SELECT COUNT(*), COALESCE(SUM(size), 0) FROM backups WHERE project_id = ? AND deleted = ?"
)

// Inventory reads per-project consumption from the volumes, snapshots and
// backups tables. Soft-deleted rows are ignored.
type Inventory struct {
	DB *sql.DB
	// Rebind rewrites the ? placeholders of a query for the database in use.
	// Nil leaves them unchanged.
	Rebind func(string) string
	// NoSnapshotGigabytes excludes snapshot sizes from the gigabytes
	// resource.
	NoSnapshotGigabytes bool
}

// usage is the number of live rows of a table and their total size in GiB.
type usage struct {
	count, gigabytes int64
}

func (inv *Inventory) query(ctx context.Context, q, projectID string) (usage, error) {
	if inv.Rebind != nil {
		q = inv.Rebind(q)
	}
	rows, err := inv.DB.QueryContext(ctx, q, projectID, false)
	if err != nil {
		return usage{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return usage{}, err
		}
		return usage{}, errors.New("cursor has no rows after usage query")
	}
	var u usage
	if err := rows.Scan(&u.count, &u.gigabytes); err != nil {
		return usage{}, err
	}
	if rows.Next() {
		return usage{}, errors.New("too many rows returned from usage query")
	}
	return u, rows.Err()
}

// SyncVolumes counts the live volumes of a project.
func (inv *Inventory) SyncVolumes(ctx context.Context, projectID string) (map[string]int64, error) {
	v, err := inv.query(ctx, volumeUsageQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("counting volumes: %w", err)
	}
	return map[string]int64{quota.Volumes: v.count}, nil
}

// SyncGigabytes sums the sizes of a project's live volumes and, unless
// NoSnapshotGigabytes is set, of its snapshots.
func (inv *Inventory) SyncGigabytes(ctx context.Context, projectID string) (map[string]int64, error) {
	v, err := inv.query(ctx, volumeUsageQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("summing volume sizes: %w", err)
	}
	total := v.gigabytes
	if !inv.NoSnapshotGigabytes {
		s, err := inv.query(ctx, snapshotUsageQuery, projectID)
		if err != nil {
			return nil, fmt.Errorf("summing snapshot sizes: %w", err)
		}
		total += s.gigabytes
	}
	return map[string]int64{quota.Gigabytes: total}, nil
}

// SyncSnapshots counts the live snapshots of a project.
func (inv *Inventory) SyncSnapshots(ctx context.Context, projectID string) (map[string]int64, error) {
	s, err := inv.query(ctx, snapshotUsageQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("counting snapshots: %w", err)
	}
	return map[string]int64{quota.Snapshots: s.count}, nil
}

// SyncBackups counts the live backups of a project.
func (inv *Inventory) SyncBackups(ctx context.Context, projectID string) (map[string]int64, error) {
	b, err := inv.query(ctx, backupUsageQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("counting backups: %w", err)
	}
	return map[string]int64{quota.Backups: b.count}, nil
}

// SyncBackupGigabytes sums the sizes of a project's live backups.
func (inv *Inventory) SyncBackupGigabytes(ctx context.Context, projectID string) (map[string]int64, error) {
	b, err := inv.query(ctx, backupUsageQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("summing backup sizes: %w", err)
	}
	return map[string]int64{quota.BackupGigabytes: b.gigabytes}, nil
}

// Syncers returns a syncer for each standard resource, ready to be passed to
// quota.DefaultResources.
func (inv *Inventory) Syncers() map[string]quota.Syncer {
	return map[string]quota.Syncer{
		quota.Volumes:         quota.SyncerFunc(inv.SyncVolumes),
		quota.Gigabytes:       quota.SyncerFunc(inv.SyncGigabytes),
		quota.Snapshots:       quota.SyncerFunc(inv.SyncSnapshots),
		quota.Backups:         quota.SyncerFunc(inv.SyncBackups),
		quota.BackupGigabytes: quota.SyncerFunc(inv.SyncBackupGigabytes),
	}
}
