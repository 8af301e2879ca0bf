// Command tracegen models grouped job traces and synthesizes look-alike
// datasets.
//
//	tracegen extract <input> <extract-dir> <dist-dir> <max-groups> <support> [group-key]
//	tracegen simulate <dist-dir> <datagen-dir> <consolidated> <rows>
//	tracegen validate <dist-dir> <datagen-dir>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tracegen: %v\n", err)
		stop()
		os.Exit(1)
	}
}
