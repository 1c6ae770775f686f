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
	"flag"
	"fmt"
	"time"
)

// DefaultClass is the quota class whose overrides replace resource defaults
// when Config.UseDefaultQuotaClass is set.
const DefaultClass = "default"

var (
	driverFlag           = flag.String("quota_driver", DBDriverName, "Quota driver to use, db or noop")
	reservationExpire    = flag.Int64("reservation_expire", 86400, "Number of seconds until a reservation expires")
	untilRefresh         = flag.Int64("until_refresh", 0, "Count of reservations until usage is refreshed, 0 to disable")
	maxAge               = flag.Int64("max_age", 0, "Number of seconds between subsequent usage refreshes, 0 to disable")
	useDefaultQuotaClass = flag.Bool("use_default_quota_class", true, "Enables or disables use of default quota class with default quota")

	defaultLimitFlags = map[string]*int64{
		"quota_volumes":          flag.Int64("quota_volumes", 10, "Number of volumes allowed per project"),
		"quota_snapshots":        flag.Int64("quota_snapshots", 10, "Number of volume snapshots allowed per project"),
		"quota_gigabytes":        flag.Int64("quota_gigabytes", 1000, "Total amount of storage, in gigabytes, allowed for volumes and snapshots per project"),
		"quota_backups":          flag.Int64("quota_backups", 10, "Number of volume backups allowed per project"),
		"quota_backup_gigabytes": flag.Int64("quota_backup_gigabytes", 1000, "Total amount of storage, in gigabytes, allowed for backups per project"),
	}
)

// Config holds the settings of the quota subsystem.
type Config struct {
	// Driver names the quota driver.
	Driver string
	// ReservationExpire is the lifetime of reservations created with the
	// default expiration.
	ReservationExpire time.Duration
	// UntilRefresh is the number of reservations after which a usage row is
	// resynchronised. Zero disables countdown refreshes.
	UntilRefresh int64
	// MaxAge is the age after which a usage row is resynchronised. Zero
	// disables age-based refreshes.
	MaxAge time.Duration
	// UseDefaultQuotaClass makes overrides of the "default" quota class
	// replace resource defaults.
	UseDefaultQuotaClass bool
	// Defaults holds default limits keyed by setting name, e.g.
	// "quota_volumes".
	Defaults map[string]int64
}

// DefaultConfig returns the configuration used when no flags are set.
func DefaultConfig() Config {
	return Config{
		Driver:               DBDriverName,
		ReservationExpire:    86400 * time.Second,
		UseDefaultQuotaClass: true,
		Defaults: map[string]int64{
			"quota_volumes":          10,
			"quota_snapshots":        10,
			"quota_gigabytes":        1000,
			"quota_backups":          10,
			"quota_backup_gigabytes": 1000,
		},
	}
}

// ConfigFromFlags snapshots the quota flags into a Config.
func ConfigFromFlags() Config {
	cfg := Config{
		Driver:               *driverFlag,
		ReservationExpire:    time.Duration(*reservationExpire) * time.Second,
		UntilRefresh:         *untilRefresh,
		MaxAge:               time.Duration(*maxAge) * time.Second,
		UseDefaultQuotaClass: *useDefaultQuotaClass,
		Defaults:             make(map[string]int64, len(defaultLimitFlags)),
	}
	for name, v := range defaultLimitFlags {
		cfg.Defaults[name] = *v
	}
	return cfg
}

// Validate checks cfg for out-of-range settings.
func (c Config) Validate() error {
	if c.ReservationExpire < 0 {
		return fmt.Errorf("reservation_expire must not be negative, got %v", c.ReservationExpire)
	}
	if c.UntilRefresh < 0 {
		return fmt.Errorf("until_refresh must not be negative, got %d", c.UntilRefresh)
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative, got %v", c.MaxAge)
	}
	for name, v := range c.Defaults {
		if v < Unlimited {
			return fmt.Errorf("%s must be %d or greater, got %d", name, Unlimited, v)
		}
	}
	return nil
}

// untilRefreshValue returns the value a refreshed usage row restarts its
// countdown from, or nil when countdown refreshes are disabled.
func (c Config) untilRefreshValue() *int64 {
	if c.UntilRefresh <= 0 {
		return nil
	}
	v := c.UntilRefresh
	return &v
}
