package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/snapwatch/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	id := flag.String("id", "", "open this snapshot instead of the listing (optional)")
	theme := flag.String("theme", "", "color theme: Nightfox, Kanagawa or Slate (optional)")
	flag.Parse()

	if *id == "" && flag.NArg() > 0 {
		*id = flag.Arg(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, SnapshotID: *id, Theme: *theme}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "snapwatch: %v\n", err)
		return 1
	}
	return 0
}
