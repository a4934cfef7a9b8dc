// Package main is the mapctl command, an offline inspector and renderer for
// AGV map payloads.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mapctl: %v\n", err)
		os.Exit(1)
	}
}
