// Copyright 2025 Keel Contributors
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
	"flag"
	"fmt"
	"os"

	"github.com/keel-vcs/keel/cmd/keel/internal/cli"
)

// Version metadata. Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "init":
		handleInit()
	case "add":
		handleAdd()
	case "commit":
		handleCommit()
	case "log":
		handleLog()
	case "branch":
		handleBranch()
	case "checkout":
		handleCheckout()
	case "merge":
		handleMerge()
	case "status":
		handleStatus()
	case "stats":
		handleStats()
	case "version", "--version", "-v":
		handleVersion()
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println(`keel
Commands:
  init      [<dir>]
  add       <path>...
  commit    -m <message>
  log       [-n <limit>]
  branch    [<name>]
  checkout  <branch>
  merge     <branch>
  status
  stats
  version   [-v|--version]`)
}

// --- CLI configuration ---

func newConfig() cli.Config {
	return cli.Config{
		RepoFactory: cli.DefaultRepoFactory,
		Identity:    cli.DefaultIdentity(),
	}
}

// --- commands ---

func handleInit() {
	dir := ""
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}
	if err := cli.HandleInit(os.Stdout, dir); err != nil {
		die(err)
	}
}

func handleAdd() {
	if err := cli.HandleAdd(os.Stdout, newConfig(), os.Args[2:]); err != nil {
		die(err)
	}
}

func handleCommit() {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	msg := fs.String("m", "", "commit message")
	_ = fs.Parse(os.Args[2:])

	if err := cli.HandleCommit(os.Stdout, newConfig(), *msg); err != nil {
		die(err)
	}
}

func handleLog() {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	limit := fs.Int("n", 0, "limit number of commits (0 = all)")
	_ = fs.Parse(os.Args[2:])

	if err := cli.HandleLog(os.Stdout, newConfig(), *limit); err != nil {
		die(err)
	}
}

func handleBranch() {
	name := ""
	if len(os.Args) > 2 {
		name = os.Args[2]
	}
	if err := cli.HandleBranch(os.Stdout, newConfig(), name); err != nil {
		die(err)
	}
}

func handleCheckout() {
	name := ""
	if len(os.Args) > 2 {
		name = os.Args[2]
	}
	if err := cli.HandleCheckout(os.Stdout, newConfig(), name); err != nil {
		die(err)
	}
}

func handleMerge() {
	name := ""
	if len(os.Args) > 2 {
		name = os.Args[2]
	}
	if err := cli.HandleMerge(os.Stdout, newConfig(), name); err != nil {
		die(err)
	}
}

func handleStatus() {
	if err := cli.HandleStatus(os.Stdout, newConfig()); err != nil {
		die(err)
	}
}

func handleStats() {
	if err := cli.HandleStats(os.Stdout, newConfig()); err != nil {
		die(err)
	}
}

// handleVersion prints CLI version information.
func handleVersion() {
	fmt.Printf("keel %s (commit %s, built %s)\n", version, commit, date)
}

func die(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
