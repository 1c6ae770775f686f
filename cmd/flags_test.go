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

package cmd

import (
	"flag"
	"os"
	"testing"
)

func TestParseFlags(t *testing.T) {
	var system, uri string
	flag.StringVar(&system, "storage_system", "", "")
	flag.StringVar(&uri, "mysql_uri", "", "")

	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)

	initialArgs := os.Args[:]
	for _, tc := range []struct {
		desc       string
		contents   string
		env        map[string]string
		cliArgs    []string
		wantErr    string
		wantSystem string
		wantURI    string
	}{
		{
			desc:       "sameLine",
			contents:   "-storage_system mysql -mysql_uri quota@db/quota",
			wantSystem: "mysql",
			wantURI:    "quota@db/quota",
		},
		{
			desc:       "linePerFlag",
			contents:   "-storage_system mysql\n-mysql_uri quota@db/quota",
			wantSystem: "mysql",
			wantURI:    "quota@db/quota",
		},
		{
			desc:       "lineContinuation",
			contents:   "-storage_system mysql \\\n-mysql_uri quota@db/quota",
			wantSystem: "mysql",
			wantURI:    "quota@db/quota",
		},
		{
			desc:       "commandLineAddsFlag",
			contents:   "-storage_system mysql",
			cliArgs:    []string{"-mysql_uri", "quota@db/quota"},
			wantSystem: "mysql",
			wantURI:    "quota@db/quota",
		},
		{
			desc:       "commandLineOverridesFile",
			contents:   "-storage_system mysql\n-mysql_uri quota@db/quota",
			cliArgs:    []string{"-storage_system", "memory"},
			wantSystem: "memory",
			wantURI:    "quota@db/quota",
		},
		{
			desc:       "environment",
			contents:   "-storage_system mysql\n-mysql_uri $QUOTA_DB_URI",
			env:        map[string]string{"QUOTA_DB_URI": "quota@replica/quota"},
			wantSystem: "mysql",
			wantURI:    "quota@replica/quota",
		},
		{
			desc:       "quoted",
			contents:   "-storage_system 'my sql' -mysql_uri \"quota db\"",
			wantSystem: "my sql",
			wantURI:    "quota db",
		},
		{
			desc:     "unbalancedQuotes",
			contents: "-storage_system 'mysql",
			wantErr:  "unbalanced quotes in flag file",
		},
		{
			desc:     "undefinedFlag",
			contents: "-storage_system mysql -quota_class gold",
			wantErr:  "flag provided but not defined: -quota_class",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			system, uri = "", ""
			os.Args = append(initialArgs, tc.cliArgs...)
			defer func() { os.Args = initialArgs }()
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			err := parseFlags(tc.contents)
			if tc.wantErr != "" {
				if err == nil || err.Error() != tc.wantErr {
					t.Fatalf("parseFlags()=%v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags(): %v", err)
			}
			if system != tc.wantSystem {
				t.Errorf("storage_system=%q, want %q", system, tc.wantSystem)
			}
			if uri != tc.wantURI {
				t.Errorf("mysql_uri=%q, want %q", uri, tc.wantURI)
			}
		})
	}
}
