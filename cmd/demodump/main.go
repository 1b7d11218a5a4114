// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// demodump opens one or more Source engine demo files, frames their
// top-level commands with package demoframe, and reports the
// svc_SendTable / svc_ServerInfo / svc_ClassInfo payloads it finds in
// each. Each file gets its own Session, processed concurrently with the
// others but never sharing core state, per SPEC_FULL.md §5.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/lipsanen/demogoblin/demoframe"
	"github.com/lipsanen/demogoblin/internal/stats"
	"github.com/lipsanen/demogoblin/internal/xlog"
	"github.com/lipsanen/demogoblin/sendtable"
)

// commandsPerFile tracks the average and median command count across every
// file in a batch run. Record is safe to call concurrently from the
// errgroup's workers; Get must only be called once every worker has
// finished (see run, after g.Wait()).
var (
	commandsPerFile       stats.Mean
	commandsPerFileMedian = stats.NewMedian(256)
)

var (
	debug     = flag.Bool("debug", false, "enable goroutine-tagged trace logging")
	asYAML    = flag.Bool("yaml", false, "print the demonstration flat class as YAML instead of a summary line")
	protocol  = flag.Int("protocol", 4, "demo protocol version, governs the flattener's priority-sort rule")
	game      = flag.String("game", "", "game directory name; set to \"l4d\" to select the older sort rule")
	jobs      = flag.Int("j", 4, "maximum number of demo files processed concurrently")
)

func main() {
	flag.Parse()
	if *debug {
		xlog.Enabled = true
	}

	if err := run(context.Background(), flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "demodump:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: demodump [flags] file.dem [file.dem ...]")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)

	for _, path := range paths {
		g.Go(func() error {
			return processFile(ctx, path)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if len(paths) > 1 {
		fmt.Printf("commands per file: mean=%.1f median=%.1f\n",
			commandsPerFile.Get(), commandsPerFileMedian.Get())
	}
	return nil
}

// summary counts the framing-level artifacts found in one demo file.
type summary struct {
	Path         string `yaml:"path"`
	Commands     int    `yaml:"commands"`
	SendTables   int    `yaml:"send_tables"`
	ServerInfos  int    `yaml:"server_infos"`
	ClassInfos   int    `yaml:"class_infos"`
}

func processFile(ctx context.Context, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// Resource-exhaustion invariant violations (e.g. a baseclass
			// chain over 1024 entries) panic per SPEC_FULL.md §7; a batch
			// run reports the failing file rather than crashing siblings.
			err = fmt.Errorf("%s: session panic: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader, header, err := demoframe.Open(f)
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}

	s := summary{Path: path}
	xlog.Log([]any{"file=%s", path}, "header", "protocol=%d map=%q", header.DemoProtocol, header.MapName)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := reader.Next()
		if err != nil {
			break
		}
		s.Commands++

		cmd.NetMessages(func(msg demoframe.NetMessage) bool {
			switch msg.Kind {
			case demoframe.NetMsgSendTable:
				s.SendTables++
			case demoframe.NetMsgServerInfo:
				s.ServerInfos++
			case demoframe.NetMsgClassInfo:
				s.ClassInfos++
			}
			return true
		})

		if cmd.Kind == demoframe.CmdStop {
			break
		}
	}

	commandsPerFile.Record(float64(s.Commands))
	commandsPerFileMedian.Record(float64(s.Commands))
	printSummary(s)
	return nil
}

func printSummary(s summary) {
	// Clone the demonstration class before the session (and its arena)
	// that produced it ever goes out of scope, since FlatClass.Props is
	// arena-backed and must not be retained past Session teardown.
	fc, err := demonstrationFlatClass().Clone()
	if err != nil {
		fmt.Fprintln(os.Stderr, "demodump: cloning flat class:", err)
	}

	if *asYAML {
		out, err := yaml.Marshal(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "demodump: marshaling summary:", err)
			return
		}
		fmt.Print(string(out))

		classYAML, err := yaml.Marshal(fc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "demodump: marshaling flat class:", err)
			return
		}
		fmt.Print(string(classYAML))
		return
	}

	fmt.Printf("%s: %d commands, %d sendtables, %d serverinfos, %d classinfos\n",
		s.Path, s.Commands, s.SendTables, s.ServerInfos, s.ClassInfos)
	fmt.Printf("  demonstration flat class %q: %d props\n", fc.DTName, fc.PropCount)
}

// demonstrationFlatClass exercises sendtable.EntityState end to end
// against a small built-in fixture, since decoding the real DataTables
// message into Sendtable/Serverclass values is a separate subsystem this
// module treats as out of scope (SPEC_FULL.md §4.4). It proves the core's
// two packages compose correctly even when run against real demo framing.
func demonstrationFlatClass() *sendtable.FlatClass {
	root := &sendtable.Sendtable{
		Name: "DT_BaseEntity",
		Props: []sendtable.Sendprop{
			{Name: "m_vecOrigin", Type: sendtable.PropVec3, Priority: 64, Flags: sendtable.FlagChangesOften},
			{Name: "m_angRotation", Type: sendtable.PropVec3, Priority: 32},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "CBaseEntity", DataTableName: "DT_BaseEntity"}}

	sess := sendtable.NewSession(*protocol, *game, 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{root}, serverClasses, sendtable.Settings{})
	if err != nil {
		return &sendtable.FlatClass{}
	}

	fc, err := es.ServerClassData(0)
	if err != nil {
		return &sendtable.FlatClass{}
	}
	return fc
}
