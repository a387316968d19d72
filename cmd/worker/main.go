// Command worker claims queued account requests, validates them, and
// provisions the accounts that pass.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workercmd "github.com/louisbranch/ocfweb/internal/cmd/worker"
)

func main() {
	log.SetPrefix("[WORKER] ")
	cfg, err := workercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse worker config: %v", err)
	}

	// Tasks already claimed finish before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = workercmd.Run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
	log.Printf("worker drained and stopped")
}
