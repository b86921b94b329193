package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ilexum-group/nimbex/internal/hasher"
)

func newHashCmd() *cobra.Command {
	var (
		algorithm string
		recursive bool
		pattern   string
	)

	cmd := &cobra.Command{
		Use:   "hash <path>",
		Short: "Compute the forensic digest of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hasher.New(algorithm, 0)
			if err != nil {
				return err
			}

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}

			if info.IsDir() {
				results, err := h.HashDirectory(args[0], recursive, pattern)
				if err != nil {
					return err
				}
				for _, result := range results {
					fmt.Printf("%s  %s\n", result.HashValue, result.FilePath)
				}
				fmt.Printf("\n%d files hashed (%s)\n", len(results), h.Algorithm())
				return nil
			}

			result, err := h.HashFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("File:       %s\n", result.FilePath)
			fmt.Printf("Algorithm:  %s\n", result.Algorithm)
			fmt.Printf("Hash:       %s\n", result.HashValue)
			fmt.Printf("Size:       %d bytes\n", result.FileSize)
			fmt.Printf("Calculated: %s\n", result.CalculatedAt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "sha256", "hash algorithm")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into subdirectories")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "*", "file name glob pattern")
	return cmd
}
