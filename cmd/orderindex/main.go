// Package main provides the entry point for the orderindex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/orderindex/cmd/orderindex/cmd"
	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, coierrors.FormatForCLI(err))
		os.Exit(1)
	}
}
