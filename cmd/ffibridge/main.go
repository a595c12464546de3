// Package main provides the entry point for the ffibridge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/ffibridge/cmd/ffibridge/cmd"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprint(os.Stderr, bridgeerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
