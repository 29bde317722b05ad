// Command resolve solves declarative equation problems defined in HCL files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resolve",
	Short: "declarative equation solver for engineering quantities",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
