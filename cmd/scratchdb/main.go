// scratchdb is the operator CLI for agent scratch databases: inspect a
// scratch file's schema and digest, run guarded SQL against it, or compact
// it, without going through an agent cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.1-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:

SUBCOMMANDS:
  %s digest <file> [-json]    Profile the scratch file's user tables
  %s schema <file>            Print the user tables' CREATE statements
  %s exec <file> <sql>        Run SQL through the sandbox and print results
  %s vacuum <file>            Drop ephemeral tables and compact the file

FLAGS:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
ENVIRONMENT VARIABLES:
  SCRATCHDB_HOME          Data directory (default: ~/.scratchdb)

EXAMPLES:
  Profile a file:         %s digest /tmp/scratch-1234.db
  Query it safely:        %s exec /tmp/scratch-1234.db "SELECT * FROM findings LIMIT 5"
`, os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	case "digest":
		os.Exit(runDigestCommand(ctx, args[1:]))
	case "schema":
		os.Exit(runSchemaCommand(ctx, args[1:]))
	case "exec":
		os.Exit(runExecCommand(ctx, args[1:]))
	case "vacuum":
		os.Exit(runVacuumCommand(ctx, args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func homeDir() string {
	if home := os.Getenv("SCRATCHDB_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".scratchdb"
	}
	return filepath.Join(userHome, ".scratchdb")
}

func requireFile(args []string, usage string) (string, bool) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: "+usage)
		return "", false
	}
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "scratch file: %v\n", err)
		return "", false
	}
	return path, true
}
