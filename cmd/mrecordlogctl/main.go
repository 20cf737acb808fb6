// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command mrecordlogctl is a small operator tool for inspecting and
// driving a mrecordlog directory directly from the shell: create and
// delete queues, append payloads, dump ranges, trigger a truncate, and
// list the rolling files currently on disk.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/RaphaelMarinier/mrecordlog"
	"github.com/RaphaelMarinier/mrecordlog/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}
	dir, cmd, rest := args[0], args[1], args[2:]

	flagSet := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	verbose := flagSet.Bool("v", false, "enable debug logging")
	if err := flagSet.Parse(rest); err != nil {
		return 2
	}
	if *verbose {
		log.SetLevel(log.Debug)
	}

	m, err := mrecordlog.Open(context.Background(), dir, mrecordlog.Options{})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer m.Close()

	switch cmd {
	case "create-queue":
		err = cmdCreateQueue(m, flagSet.Args())
	case "delete-queue":
		err = cmdDeleteQueue(m, flagSet.Args())
	case "append":
		err = cmdAppend(m, stdout, flagSet.Args())
	case "range":
		err = cmdRange(m, stdout, flagSet.Args())
	case "truncate":
		err = cmdTruncate(m, flagSet.Args())
	case "list-queues":
		err = cmdListQueues(m, stdout)
	case "list-files":
		err = cmdListFiles(m, stdout)
	default:
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, `usage: mrecordlogctl <dir> <command> [args]

commands:
  create-queue <name>
  delete-queue <name>
  append <name> <payload>
  range <name> <start> <end>
  truncate <name> <position>
  list-queues
  list-files`)
}

func cmdCreateQueue(m *mrecordlog.MultiRecordLog, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("create-queue needs exactly one argument: <name>")
	}
	return m.CreateQueue(args[0])
}

func cmdDeleteQueue(m *mrecordlog.MultiRecordLog, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete-queue needs exactly one argument: <name>")
	}
	return m.DeleteQueue(args[0])
}

func cmdAppend(m *mrecordlog.MultiRecordLog, stdout *os.File, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("append needs exactly two arguments: <name> <payload>")
	}
	p, err := m.AppendRecord(args[0], nil, []byte(args[1]))
	if err != nil {
		return err
	}
	if p != nil {
		fmt.Fprintln(stdout, *p)
	}
	return nil
}

func cmdRange(m *mrecordlog.MultiRecordLog, stdout *os.File, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("range needs exactly three arguments: <name> <start> <end>")
	}
	start, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return err
	}
	end, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return err
	}
	it, ok := m.Range(args[0], start, end)
	if !ok {
		return fmt.Errorf("queue %q does not exist", args[0])
	}
	for {
		pos, payload, ok := it.Next()
		if !ok {
			break
		}
		fmt.Fprintf(stdout, "%d\t%s\n", pos, payload)
	}
	return nil
}

func cmdTruncate(m *mrecordlog.MultiRecordLog, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("truncate needs exactly two arguments: <name> <position>")
	}
	position, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return err
	}
	return m.Truncate(args[0], position)
}

func cmdListQueues(m *mrecordlog.MultiRecordLog, stdout *os.File) error {
	for _, name := range m.ListQueues() {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func cmdListFiles(m *mrecordlog.MultiRecordLog, stdout *os.File) error {
	nums, err := m.ListFileNumbers()
	if err != nil {
		return err
	}
	for _, n := range nums {
		fmt.Fprintln(stdout, n)
	}
	return nil
}
