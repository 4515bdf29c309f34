// Command sholl runs Sholl analysis on SWC reconstructions and serves the
// stored profiles over HTTP.
//
//	sholl analyse [flags] neuron.swc
//	sholl serve [flags]
//	sholl version
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sholl.report/internal/version"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  analyse   compute a Sholl profile from an SWC file")
	fmt.Fprintln(os.Stderr, "  serve     serve stored profiles over HTTP")
	fmt.Fprintln(os.Stderr, "  version   print build information")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "analyse", "analyze":
		err = runAnalyse(ctx, args, os.Stdout)
	case "serve":
		err = runServe(ctx, args)
	case "version", "--version", "-version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
