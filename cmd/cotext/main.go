// Package main is the cotext command line tool: a randomized
// convergence simulator and an edit-script replayer for the replicated
// buffer engine.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/cotext/buffer"
	"github.com/dshills/cotext/clock"
	"github.com/dshills/cotext/internal/scenario"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		usage()
		return 1
	}
	switch os.Args[1] {
	case "simulate":
		return runSimulate(os.Args[2:])
	case "replay":
		return runReplay(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("cotext %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "cotext - replicated text buffer tool\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  cotext simulate -scenario file.toml   Run a convergence simulation\n")
	fmt.Fprintf(os.Stderr, "  cotext replay -script edits.jsonl     Replay a JSON-lines edit script\n")
	fmt.Fprintf(os.Stderr, "  cotext version                        Show version\n")
}

func runSimulate(args []string) int {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	scenarioPath := fs.String("scenario", "", "Path to scenario file (.toml, .yaml)")
	verbose := fs.Bool("verbose", false, "Print per-round progress")
	fs.Parse(args)

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -scenario is required")
		return 1
	}
	s, err := scenario.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	runID := uuid.New()
	rng := rand.New(rand.NewSource(s.Seed))
	replicas := make([]*buffer.Buffer, s.Replicas)
	docID := rng.Uint64()
	for i := range replicas {
		replicas[i] = buffer.New(clock.ReplicaID(i+1), docID, s.InitialText)
	}

	for round := 0; round < s.Rounds; round++ {
		roundOps := make([][]buffer.Operation, len(replicas))
		for i, b := range replicas {
			ops := b.RandomlyEdit(rng, s.EditsPerRound)
			ops = append(ops, b.RandomlyUndoRedo(rng, s.UndosPerRound)...)
			roundOps[i] = ops
		}
		for i, b := range replicas {
			var incoming []buffer.Operation
			for j, ops := range roundOps {
				if j != i {
					incoming = append(incoming, ops...)
				}
			}
			rng.Shuffle(len(incoming), func(x, y int) {
				incoming[x], incoming[y] = incoming[y], incoming[x]
			})
			b.ApplyOps(incoming)
		}
		if *verbose {
			fmt.Printf("round %d: %d bytes\n", round+1, replicas[0].Len())
		}
	}

	for i, b := range replicas {
		if err := b.CheckInvariants(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: replica %d invariant violation: %v\n", i+1, err)
			return 1
		}
		if b.DeferredOpCount() != 0 {
			fmt.Fprintf(os.Stderr, "Error: replica %d has %d undelivered ops\n", i+1, b.DeferredOpCount())
			return 1
		}
		if b.Text() != replicas[0].Text() {
			fmt.Fprintf(os.Stderr, "Error: replica %d diverged from replica 1\n", i+1)
			return 1
		}
	}

	fmt.Printf("run %s: scenario %q converged\n", runID, s.Name)
	fmt.Printf("  replicas: %d  rounds: %d  seed: %d\n", s.Replicas, s.Rounds, s.Seed)
	fmt.Printf("  final text: %d bytes, %d lines\n", replicas[0].Len(), replicas[0].MaxPoint().Line+1)
	return 0
}

func runReplay(args []string) int {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	scriptPath := fs.String("script", "", "Path to JSON-lines edit script")
	initial := fs.String("text", "", "Initial buffer text")
	fs.Parse(args)

	if *scriptPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -script is required")
		return 1
	}
	f, err := os.Open(*scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer f.Close()

	b := buffer.New(1, uint64(uuid.New().ID()), *initial)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			fmt.Fprintf(os.Stderr, "Error: line %d: invalid JSON\n", lineNo)
			return 1
		}
		start := int(gjson.Get(line, "start").Int())
		end := int(gjson.Get(line, "end").Int())
		text := gjson.Get(line, "text").String()

		op, err := b.Edit([]buffer.TextEdit{{
			Range:   buffer.NewRange(start, end),
			NewText: text,
		}})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: line %d: %v\n", lineNo, err)
			return 1
		}

		record, _ := sjson.Set("", "seq", lineNo)
		record, _ = sjson.Set(record, "op.replica", int(op.ReplicaID()))
		record, _ = sjson.Set(record, "op.start", op.Ranges[0].Start)
		record, _ = sjson.Set(record, "op.end", op.Ranges[0].End)
		record, _ = sjson.Set(record, "op.text", text)
		record, _ = sjson.Set(record, "len", b.Len())
		fmt.Fprintln(out, record)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	final, _ := sjson.Set("", "text", b.Text())
	final, _ = sjson.Set(final, "lines", b.MaxPoint().Line+1)
	fmt.Fprintln(out, final)
	return 0
}
