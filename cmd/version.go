package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nimbus version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nimbus version %s\n", GetVersion())
		},
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
