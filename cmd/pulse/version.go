package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/pulse"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pulse",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulse version %s\n", strings.TrimSpace(pulse.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
