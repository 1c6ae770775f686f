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

package quota

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ResourceUnknownError is returned when a caller names resources that are
// not registered, or not of the kind the operation applies to.
type ResourceUnknownError struct {
	Unknown []string
}

func (e *ResourceUnknownError) Error() string {
	return fmt.Sprintf("unknown quota resources %v", e.Unknown)
}

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *ResourceUnknownError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// ProjectQuotaNotFoundError is returned by raw lookups when a project has no
// override for a resource. It does not imply any particular limit.
type ProjectQuotaNotFoundError struct {
	ProjectID string
	Resource  string
}

func (e *ProjectQuotaNotFoundError) Error() string {
	return fmt.Sprintf("quota for project %s could not be found", e.ProjectID)
}

// GRPCStatus maps the error to codes.NotFound.
func (e *ProjectQuotaNotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// ClassNotFoundError is returned by raw lookups when a quota class has no
// override for a resource.
type ClassNotFoundError struct {
	ClassName string
	Resource  string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("quota class %s could not be found", e.ClassName)
}

// GRPCStatus maps the error to codes.NotFound.
func (e *ClassNotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// UsageInfo is the usage snapshot reported with an OverQuotaError.
type UsageInfo struct {
	InUse    int64
	Reserved int64
}

// Consumed returns in-use plus reserved units.
func (u UsageInfo) Consumed() int64 {
	return u.InUse + u.Reserved
}

// OverQuotaError is returned when a request would take one or more resources
// above their limits. Nothing was changed.
type OverQuotaError struct {
	// Overs lists the offending resources, sorted.
	Overs []string
	// Quotas holds the effective limit of every requested resource.
	Quotas map[string]int64
	// Usages holds the usage seen by the decision. Empty for limit checks.
	Usages map[string]UsageInfo
	// Deltas holds the requested amounts.
	Deltas map[string]int64
}

func (e *OverQuotaError) Error() string {
	parts := make([]string, 0, len(e.Overs))
	for _, r := range e.Overs {
		parts = append(parts, fmt.Sprintf("%s requested %d, quota is %d and %d has been consumed",
			r, e.Deltas[r], e.Quotas[r], e.Usages[r].Consumed()))
	}
	return fmt.Sprintf("quota exceeded for resources %v: %s", e.Overs, strings.Join(parts, "; "))
}

// GRPCStatus maps the error to codes.ResourceExhausted.
func (e *OverQuotaError) GRPCStatus() *status.Status {
	return status.New(codes.ResourceExhausted, e.Error())
}

// InvalidExpirationError is returned when a reservation expiration cannot be
// interpreted.
type InvalidExpirationError struct {
	Expire string
}

func (e *InvalidExpirationError) Error() string {
	return fmt.Sprintf("invalid reservation expiration %s", e.Expire)
}

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *InvalidExpirationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// InvalidValueError is returned when limit checks or admin updates carry
// out-of-range values.
type InvalidValueError struct {
	Unders []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("change would make usage less than 0 for the following resources: %v", e.Unders)
}

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *InvalidValueError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// ReservationNotFoundError is returned by commit and rollback when some of
// the given reservations do not exist, typically because they were already
// resolved or expired. Nothing was changed.
type ReservationNotFoundError struct {
	IDs []string
}

func (e *ReservationNotFoundError) Error() string {
	return fmt.Sprintf("reservations not found: %v", e.IDs)
}

// GRPCStatus maps the error to codes.FailedPrecondition.
func (e *ReservationNotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, e.Error())
}

// UsageSyncError is returned by Reserve when a usage marked for
// resynchronisation is still negative after its syncer ran, typically because
// the syncer did not report it. Nothing was reserved.
type UsageSyncError struct {
	ProjectID string
	Resource  string
}

func (e *UsageSyncError) Error() string {
	return fmt.Sprintf("usage %s of project %s could not be resynchronised", e.Resource, e.ProjectID)
}

// GRPCStatus maps the error to codes.FailedPrecondition.
func (e *UsageSyncError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, e.Error())
}
