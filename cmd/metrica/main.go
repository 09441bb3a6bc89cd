// cmd/metrica/main.go
//
// metrica – command-line entry point.
//
// Life-cycle
// ----------
//
//  1. Build the cobra tree (install, site, report, tables, serve).
//
//  2. Install a console logger so flag or config errors are visible.
//
//  3. Run the command under a context cancelled by SIGINT or SIGTERM.
//     Commands that need the database load `conf/global.yaml`, start the
//     file logger, resolve the password, and open the pool on first use.
//     The pool is closed and the logger flushed whether or not the command
//     succeeded.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanizio/metrica/cmd/metrica/commands"
)

// Version information, set by the build.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, fmt.Sprintf("%s (commit: %s)", Version, Commit)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
