package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the agent release version.
const Version = "1.0.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nimbex version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("nimbex", Version)
		},
	}
}
