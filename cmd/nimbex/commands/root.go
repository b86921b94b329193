package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRoot builds the nimbex command tree.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "nimbex",
		Short: "Forensic evidence collection for cloud and container platforms",
		Long:  "Nimbex collects evidence from container and cloud platforms and produces a tamper-evident manifest with cryptographic fingerprints and a chain-of-custody trail.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "nimbex.yaml", "config file path")

	root.AddCommand(
		newHashCmd(),
		newVerifyCmd(),
		newCollectCmd(),
		newCatalogCmd(),
		newInfoCmd(),
		newVersionCmd(),
	)

	return root
}
