// ddbseed provisions the DynamoDB tables of a catalog and loads a dataset
// into them.
//
// # Usage
//
//	ddbseed --operation create [--region eu-west-1] [--endpoint http://localhost:8000]
//	ddbseed --operation upload [--data items.yaml] [--respect-capacity]
//
// Without --catalog and --data the built-in ProductCatalog, Forum, Thread and
// Reply tables and their sample items are used. --local-db DIR and --memory
// replace DynamoDB with an embedded store, for development and tests.
//
// Every flag can also be set through a DDBSEED_* environment variable (a .env
// file in the working directory is loaded first) or a ddbseed.yaml file found
// in the working directory or any of its parents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// An interrupt stops new batches; batches already sent are waited for.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	root.SetArgs(normalizeArgs(root.Flags(), os.Args[1:]))
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "ddbseed: %v\n", err)
		os.Exit(1)
	}
}
