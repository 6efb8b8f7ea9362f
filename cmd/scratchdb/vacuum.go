package main

import (
	"context"
	"fmt"
	"os"

	"github.com/basket/scratchdb/internal/lifecycle"
)

func runVacuumCommand(ctx context.Context, args []string) int {
	path, ok := requireFile(args, os.Args[0]+" vacuum <file>")
	if !ok {
		return 2
	}

	before, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stat: %v\n", err)
		return 1
	}
	if err := lifecycle.Compact(ctx, path); err != nil {
		fmt.Fprintf(os.Stderr, "vacuum: %v\n", err)
		return 1
	}
	after, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stat: %v\n", err)
		return 1
	}
	fmt.Printf("compacted %s: %d -> %d bytes\n", path, before.Size(), after.Size())
	return 0
}
