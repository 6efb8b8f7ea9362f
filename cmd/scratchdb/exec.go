package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/basket/scratchdb/internal/config"
	"github.com/basket/scratchdb/internal/executor"
	"github.com/basket/scratchdb/internal/otel"
	"github.com/basket/scratchdb/internal/session"
	"github.com/basket/scratchdb/internal/telemetry"
)

func runExecCommand(ctx context.Context, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: "+os.Args[0]+" exec <file> <sql>")
		return 2
	}
	path, ok := requireFile(args[:1], os.Args[0]+" exec <file> <sql>")
	if !ok {
		return 2
	}
	script := strings.Join(args[1:], " ")

	cfg, err := config.Load(homeDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		return 1
	}
	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer closer.Close()

	provider, err := otel.Init(ctx, otel.Config{
		Enabled:     cfg.OTel.Enabled,
		Exporter:    cfg.OTel.Exporter,
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: cfg.OTel.ServiceName,
		SampleRate:  cfg.OTel.SampleRate,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel: %v\n", err)
		return 1
	}
	defer provider.Shutdown(ctx)
	metrics, err := otel.NewMetrics(provider.Meter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel metrics: %v\n", err)
		return 1
	}

	sess, err := session.Open(ctx, path, cfg.StatementTimeout())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		return 1
	}
	defer sess.Close()

	exec := executor.New(sess, int64(cfg.Size.SoftLimitMB)*1024*1024, logger, metrics)
	batch := exec.ExecuteScript(ctx, script, false)

	for i, res := range batch.Results {
		if res.Err != "" {
			fmt.Fprintf(os.Stderr, "statement %d failed: %s\n", i, res.Err)
			if res.Hint != "" {
				fmt.Fprintf(os.Stderr, "hint: %s\n", res.Hint)
			}
			continue
		}
		if res.Rows == nil {
			fmt.Printf("statement %d: %d rows affected\n", i, res.RowsAffected)
			continue
		}
		for _, row := range res.Rows {
			line, err := json.Marshal(row)
			if err != nil {
				fmt.Fprintf(os.Stderr, "encode row: %v\n", err)
				return 1
			}
			fmt.Println(string(line))
		}
	}
	if batch.SizeWarning != "" {
		fmt.Fprintln(os.Stderr, batch.SizeWarning)
	}
	if !batch.OK {
		return 1
	}
	return 0
}
