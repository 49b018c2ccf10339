// Command reflow exercises the reflow engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-drift/reflow/cmd/reflow/cmd"
)

func main() {
	if err := cmd.Execute(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
