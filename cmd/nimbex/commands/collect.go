package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilexum-group/nimbex/internal/catalog"
	"github.com/ilexum-group/nimbex/internal/collector"
	"github.com/ilexum-group/nimbex/internal/config"
	"github.com/ilexum-group/nimbex/internal/logging"
)

type collectFlags struct {
	caseID      string
	agentName   string
	source      string
	containerID string
	pod         string
	namespace   string
	output      string
	startTime   string
	endTime     string
	dryRun      bool
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect evidence from a provider",
	}
	cmd.AddCommand(newCollectDockerCmd(), newCollectKubernetesCmd())
	return cmd
}

func newCollectDockerCmd() *cobra.Command {
	var flags collectFlags

	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Collect evidence from Docker containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := collector.DetectCapabilities()
			if !caps.Docker {
				return fmt.Errorf("docker CLI not found in PATH")
			}

			cfg, runCfg, err := buildConfig(&flags)
			if err != nil {
				return err
			}

			params := collector.Params{}
			if flags.containerID != "" {
				params["container_id"] = flags.containerID
			}

			result := collector.Run(cmd.Context(),
				collector.NewDockerCollector(runCfg.OutputDir), runCfg, flags.source, params)
			recordResult(cfg, runCfg, "docker", flags.source, result)
			return printResult(result)
		},
	}

	addCommonCollectFlags(cmd, &flags, collector.DockerAllContainers)
	cmd.Flags().StringVarP(&flags.containerID, "container-id", "c", "", "container ID")
	return cmd
}

func newCollectKubernetesCmd() *cobra.Command {
	var flags collectFlags

	cmd := &cobra.Command{
		Use:   "kubernetes",
		Short: "Collect evidence from a Kubernetes cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := collector.DetectCapabilities()
			if !caps.Kubectl {
				return fmt.Errorf("kubectl not found in PATH")
			}

			cfg, runCfg, err := buildConfig(&flags)
			if err != nil {
				return err
			}

			params := collector.Params{"namespace": flags.namespace}
			if flags.pod != "" {
				params["pod"] = flags.pod
			}

			result := collector.Run(cmd.Context(),
				collector.NewKubernetesCollector(runCfg.OutputDir), runCfg, flags.source, params)
			recordResult(cfg, runCfg, "kubernetes", flags.source, result)
			return printResult(result)
		},
	}

	addCommonCollectFlags(cmd, &flags, collector.KubernetesPodSpecs)
	cmd.Flags().StringVar(&flags.pod, "pod", "", "pod name")
	cmd.Flags().StringVarP(&flags.namespace, "namespace", "n", "default", "namespace")
	return cmd
}

func addCommonCollectFlags(cmd *cobra.Command, flags *collectFlags, defaultSource string) {
	cmd.Flags().StringVar(&flags.caseID, "case-id", "", "case identifier")
	_ = cmd.MarkFlagRequired("case-id")
	cmd.Flags().StringVar(&flags.agentName, "agent-name", "", "agent name (default from config)")
	cmd.Flags().StringVarP(&flags.source, "source", "s", defaultSource, "source type")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&flags.startTime, "start-time", "", "collection window start (RFC 3339)")
	cmd.Flags().StringVar(&flags.endTime, "end-time", "", "collection window end (RFC 3339)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "authenticate and set up the manifest without collecting")
}

func buildConfig(flags *collectFlags) (*config.Config, collector.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, collector.Config{}, err
	}
	if flags.agentName != "" {
		cfg.AgentName = flags.agentName
	}
	if flags.output != "" {
		cfg.OutputDir = flags.output
	}

	startTime, err := parseWindowTime("start-time", flags.startTime)
	if err != nil {
		return nil, collector.Config{}, err
	}
	endTime, err := parseWindowTime("end-time", flags.endTime)
	if err != nil {
		return nil, collector.Config{}, err
	}

	return cfg, collector.Config{
		CaseID:    flags.caseID,
		AgentName: cfg.AgentName,
		AgentID:   cfg.AgentID,
		OutputDir: cfg.OutputDir,
		StartTime: startTime,
		EndTime:   endTime,
		DryRun:    flags.dryRun,
		MaxSizeMB: cfg.MaxSizeMB,
	}, nil
}

func parseWindowTime(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s (want RFC 3339): %w", flag, err)
	}
	return t, nil
}

func recordResult(cfg *config.Config, runCfg collector.Config, provider, source string, result collector.Result) {
	if result.CollectionID == "" {
		return
	}
	store, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		logging.LogWarn("Catalog unavailable", map[string]string{"error": err.Error()})
		return
	}
	defer func() { _ = store.Close() }()

	err = store.Add(catalog.Record{
		CollectionID:   result.CollectionID,
		CaseID:         runCfg.CaseID,
		Provider:       provider,
		SourceType:     source,
		ManifestPath:   result.ManifestPath,
		ManifestHash:   result.ManifestHash,
		EvidenceCount:  result.EvidenceCount,
		TotalSizeBytes: result.TotalSizeBytes,
		Success:        result.Success,
	})
	if err != nil {
		logging.LogWarn("Failed to catalog collection", map[string]string{"error": err.Error()})
	}
}

func printResult(result collector.Result) error {
	status := "OK"
	if !result.Success {
		status = "FAILED"
	}

	fmt.Println()
	fmt.Println("  collection result")
	fmt.Println("  ----------------------------------------")
	fmt.Printf("  Status:        %s\n", status)
	fmt.Printf("  Collection ID: %s\n", result.CollectionID)
	fmt.Printf("  Evidence:      %d items\n", result.EvidenceCount)
	fmt.Printf("  Size:          %.2f KB\n", float64(result.TotalSizeBytes)/1024)
	fmt.Printf("  Duration:      %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  Manifest:      %s\n", result.ManifestPath)

	for _, warning := range result.Warnings {
		fmt.Printf("  Warning:       %s\n", warning)
	}
	if !result.Success {
		return fmt.Errorf("collection failed: %v", result.Errors)
	}
	return nil
}
