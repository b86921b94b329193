package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ilexum-group/nimbex/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify evidence integrity against a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := verify.ManifestFile(manifestPath)
			if err != nil {
				return fmt.Errorf("verifying manifest: %w", err)
			}

			ok := color.New(color.FgGreen).SprintFunc()
			fail := color.New(color.FgRed).SprintFunc()
			skip := color.New(color.FgYellow).SprintFunc()

			for _, report := range summary.Reports {
				var status string
				switch report.Status {
				case verify.StatusOK:
					status = ok(report.Status)
				case verify.StatusSkipped:
					status = skip(report.Status)
				default:
					status = fail(report.Status)
				}
				hash := "N/A"
				if report.Expected != "" {
					hash = report.Expected[:16]
				}
				fmt.Printf("  %-10s %-16s %s\n", status, hash, report.Filename)
			}

			if summary.HashRecorded != "" {
				if summary.HashVerified {
					fmt.Printf("\n  Manifest hash: %s\n", ok("OK"))
				} else {
					fmt.Printf("\n  Manifest hash: %s (document altered after finalization)\n", fail("MISMATCH"))
				}
			}

			if !summary.AllValid {
				return fmt.Errorf("integrity verification failed")
			}
			fmt.Println(ok("\n  All evidence verified"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to the manifest JSON")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
