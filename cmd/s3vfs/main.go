// Package main provides the s3vfs command line tool.
//
// Usage:
//
//	s3vfs [flags] <command> [args]
//
// Commands:
//
//	ls     - List a directory or walk a tree
//	stat   - Print the metadata of a path
//	cat    - Write an object to stdout
//	get    - Download an object into a local file
//	put    - Upload a local file or stdin
//	cp     - Copy files and trees
//	mv     - Move files and trees
//	rm     - Remove files and trees
//	mkdir  - Create a directory marker
//
// Paths are given as s3://bucket/key or s3x://[access:secret@]host/bucket/key.
// Settings are read from the YAML file named by --config or S3_SPI_CONFIG and
// from the environment, a .env file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mwantia/s3vfs/cmd/s3vfs/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
