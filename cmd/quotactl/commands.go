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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/volquota/volquota/quota"
)

var (
	errUsage       = errors.New("invalid usage")
	errNoInventory = errors.New("usages cannot be resynchronised without --inventory_uri")
)

type command struct {
	args  string
	help  string
	nargs int // minimum number of positional arguments
	// resync commands leave usages to be recomputed by the syncers.
	resync bool
	run   func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, out io.Writer) error
	flags func(fs *flag.FlagSet)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"show": {
			args: "[--class=C] [--defaults] [--usages] <project>", nargs: 1,
			help:  "Show the quotas of a project",
			flags: projectQueryFlags,
			run:   showProject,
		},
		"usage": {
			args: "<project>", nargs: 1,
			help: "Show the limits and usages of every resource of a project",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, out io.Writer) error {
				qs, err := e.GetProjectQuotas(ctx, fs.Arg(0), quota.QuotaQuery{Defaults: true, Usages: true})
				if err != nil {
					return err
				}
				return printQuotaSets(out, qs, true)
			},
		},
		"set": {
			args: "<project> <resource> <limit>", nargs: 3,
			help: "Create or replace a project quota",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				limit, err := parseInt(fs.Arg(2))
				if err != nil {
					return err
				}
				return e.SetProjectQuota(ctx, fs.Arg(0), fs.Arg(1), limit)
			},
		},
		"delete": {
			args: "<project> <resource>", nargs: 2,
			help: "Remove a project quota",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				return e.DeleteProjectQuota(ctx, fs.Arg(0), fs.Arg(1))
			},
		},
		"class-show": {
			args: "[--defaults] <class>", nargs: 1,
			help: "Show the quotas of a quota class",
			flags: func(fs *flag.FlagSet) {
				fs.Bool("defaults", false, "Include resources the class does not override")
			},
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, out io.Writer) error {
				limits, err := e.GetClassQuotas(ctx, fs.Arg(0), boolFlag(fs, "defaults"))
				if err != nil {
					return err
				}
				return printLimits(out, limits)
			},
		},
		"class-set": {
			args: "<class> <resource> <limit>", nargs: 3,
			help: "Create or replace a class quota",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				limit, err := parseInt(fs.Arg(2))
				if err != nil {
					return err
				}
				return e.SetClassQuota(ctx, fs.Arg(0), fs.Arg(1), limit)
			},
		},
		"class-delete": {
			args: "<class> <resource>", nargs: 2,
			help: "Remove a class quota",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				return e.DeleteClassQuota(ctx, fs.Arg(0), fs.Arg(1))
			},
		},
		"defaults": {
			help: "Show the default limit of every resource",
			run: func(ctx context.Context, e *quota.Engine, _ *flag.FlagSet, out io.Writer) error {
				limits, err := e.GetDefaults(ctx)
				if err != nil {
					return err
				}
				return printLimits(out, limits)
			},
		},
		"reserve": {
			args: "[--class=C] [--expire=E] <project> <resource>=<delta>...", nargs: 2,
			help: "Reserve quota and print the reservation ids",
			flags: func(fs *flag.FlagSet) {
				fs.String("class", "", "Quota class resolving the limits")
				fs.String("expire", "", "Expiration: seconds, a duration or an RFC 3339 time")
			},
			run: reserve,
		},
		"commit": {
			args: "<project> <reservation>...", nargs: 2,
			help: "Commit reservations",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				return e.Commit(ctx, fs.Arg(0), fs.Args()[1:])
			},
		},
		"rollback": {
			args: "<project> <reservation>...", nargs: 2,
			help: "Roll back reservations",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				return e.Rollback(ctx, fs.Arg(0), fs.Args()[1:])
			},
		},
		"reset-usage": {
			args: "<project> [resource...]", nargs: 1, resync: true,
			help: "Resynchronise usages on the next reservation, all resources if none given",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				return e.UsageReset(ctx, fs.Arg(0), fs.Args()[1:])
			},
		},
		"destroy": {
			args: "<project>", nargs: 1,
			help: "Remove every quota, usage and reservation of a project",
			run: func(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, _ io.Writer) error {
				return e.DestroyAllByProject(ctx, fs.Arg(0))
			},
		},
		"expire": {
			help: "Roll back every expired reservation",
			run: func(ctx context.Context, e *quota.Engine, _ *flag.FlagSet, out io.Writer) error {
				n, err := e.Expire(ctx)
				fmt.Fprintf(out, "expired %d reservations\n", n)
				return err
			},
		},
	}
}

// run executes the command named by args[0]. canResync tells whether the
// engine's syncers read an inventory database.
func run(ctx context.Context, e *quota.Engine, canResync bool, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" {
		usage(out)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}
	c, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(out)
	if c.flags != nil {
		c.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < c.nargs {
		return fmt.Errorf("%w: %s %s", errUsage, args[0], c.args)
	}
	if c.resync && !canResync {
		return fmt.Errorf("%s: %w", args[0], errNoInventory)
	}
	return c.run(ctx, e, fs, out)
}

func usage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Usage: quotactl [flags] <command> [args]")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, n := range names {
		fmt.Fprintf(w, "  %s %s\t%s\n", n, commands[n].args, commands[n].help)
	}
	w.Flush()
}

func projectQueryFlags(fs *flag.FlagSet) {
	fs.String("class", "", "Overlay the overrides of this quota class")
	fs.Bool("defaults", false, "Include resources without a project override")
	fs.Bool("usages", false, "Include usage counters")
}

func showProject(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, out io.Writer) error {
	q := quota.QuotaQuery{
		QuotaClass: fs.Lookup("class").Value.String(),
		Defaults:   boolFlag(fs, "defaults"),
		Usages:     boolFlag(fs, "usages"),
	}
	qs, err := e.GetProjectQuotas(ctx, fs.Arg(0), q)
	if err != nil {
		return err
	}
	return printQuotaSets(out, qs, q.Usages)
}

func reserve(ctx context.Context, e *quota.Engine, fs *flag.FlagSet, out io.Writer) error {
	deltas := make(map[string]int64)
	for _, kv := range fs.Args()[1:] {
		name, v, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fmt.Errorf("%w: want <resource>=<delta>, got %q", errUsage, kv)
		}
		d, err := parseInt(v)
		if err != nil {
			return err
		}
		deltas[name] += d
	}
	var opts []quota.ReserveOption
	if c := fs.Lookup("class").Value.String(); c != "" {
		opts = append(opts, quota.WithQuotaClass(c))
	}
	if s := fs.Lookup("expire").Value.String(); s != "" {
		exp, err := quota.ParseExpiration(s)
		if err != nil {
			return err
		}
		opts = append(opts, quota.WithExpiration(exp))
	}
	ids, err := e.Reserve(ctx, fs.Arg(0), deltas, opts...)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

func printLimits(out io.Writer, limits map[string]int64) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tLIMIT")
	for _, name := range sortedNames(limits) {
		fmt.Fprintf(w, "%s\t%d\n", name, limits[name])
	}
	return w.Flush()
}

func printQuotaSets(out io.Writer, qs map[string]quota.QuotaSet, usages bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if usages {
		fmt.Fprintln(w, "RESOURCE\tLIMIT\tIN_USE\tRESERVED")
	} else {
		fmt.Fprintln(w, "RESOURCE\tLIMIT")
	}
	for _, name := range sortedNames(qs) {
		s := qs[name]
		if usages {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", name, s.Limit, s.InUse, s.Reserved)
		} else {
			fmt.Fprintf(w, "%s\t%d\n", name, s.Limit)
		}
	}
	return w.Flush()
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	return fs.Lookup(name).Value.(flag.Getter).Get().(bool)
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errUsage, s)
	}
	return v, nil
}
