package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ilexum-group/nimbex/internal/collector"
	"github.com/ilexum-group/nimbex/internal/hasher"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show agent capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := collector.DetectCapabilities()

			fmt.Println()
			fmt.Println("  nimbex status")
			fmt.Println("  ----------------------------------------")
			fmt.Printf("  Version:     %s\n", Version)
			fmt.Printf("  Algorithms:  %s\n", strings.Join(hasher.SupportedAlgorithms(), ", "))
			fmt.Printf("  Docker:      %s\n", available(caps.Docker))
			fmt.Printf("  Kubernetes:  %s\n", available(caps.Kubectl))
			fmt.Printf("  Config:      %s\n", cfgFile)
			return nil
		},
	}
}

func available(ok bool) string {
	if ok {
		return "available"
	}
	return "not found"
}
