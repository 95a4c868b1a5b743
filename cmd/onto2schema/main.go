// Command onto2schema compiles an ontology into schema artifacts.
//
//	onto2schema load hr.yaml --config onto2schema.yaml
//	onto2schema materialize --kind all
//	onto2schema extract Person --scope closure
//	onto2schema generate Person --targets go,sql --out ./gen --watch
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version and BuildTime are set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
