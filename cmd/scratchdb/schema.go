package main

import (
	"context"
	"fmt"
	"os"

	"github.com/basket/scratchdb/internal/config"
	"github.com/basket/scratchdb/internal/session"
)

func runSchemaCommand(ctx context.Context, args []string) int {
	path, ok := requireFile(args, os.Args[0]+" schema <file>")
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

	rows, cancel, err := sess.Query(ctx, `
		SELECT sql FROM sqlite_master
		WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		return 1
	}
	defer cancel()
	defer rows.Close()

	for rows.Next() {
		var ddl string
		if err := rows.Scan(&ddl); err != nil {
			fmt.Fprintf(os.Stderr, "schema: %v\n", err)
			return 1
		}
		fmt.Println(ddl + ";")
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		return 1
	}
	return 0
}
