package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/basket/scratchdb/internal/config"
	"github.com/basket/scratchdb/internal/digest"
	"github.com/basket/scratchdb/internal/session"
)

func runDigestCommand(ctx context.Context, args []string) int {
	jsonOutput := false
	var rest []string
	for _, arg := range args {
		if arg == "-json" || arg == "--json" {
			jsonOutput = true
			continue
		}
		rest = append(rest, arg)
	}
	path, ok := requireFile(rest, os.Args[0]+" digest <file> [-json]")
	if !ok {
		return 2
	}

	cfg, err := config.Load(homeDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		return 1
	}
	sess, err := session.Open(ctx, path, cfg.StatementTimeout())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		return 1
	}
	defer sess.Close()

	d := digest.New(digest.Options{
		MaxTables:      cfg.Digest.MaxTables,
		MaxColumns:     cfg.Digest.MaxColumns,
		SampleRows:     cfg.Digest.SampleRows,
		MaxImplicitFKs: cfg.Digest.MaxImplicitFKs,
	}, nil)
	dig := d.Digest(ctx, sess)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dig); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			return 1
		}
	} else {
		fmt.Print(digest.Render(dig))
	}
	if dig.Verdict == digest.VerdictError {
		return 1
	}
	return 0
}
