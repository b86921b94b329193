package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ilexum-group/nimbex/internal/logging"
	"github.com/ilexum-group/nimbex/pkg/manifest"
)

// Run drives one collection through a provider adapter: authenticate,
// configure the manifest source, fetch evidence files, register each with
// the generator, and save the manifest exactly once.
//
// Per-file registration failures become warnings and the run continues;
// partial evidence is still forensically valuable. A fatal fault still
// attempts to save the manifest-so-far, so evidence registered before the
// fault is never lost.
func Run(ctx context.Context, c Collector, cfg Config, source string, params Params) (result Result) {
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		logResult(&result)
	}()

	if !slices.Contains(c.SupportedSources(), source) {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"source %q not supported by %s (available: %v)",
			source, c.Provider(), c.SupportedSources()))
		return result
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("create output directory: %v", err))
		return result
	}

	if err := c.Authenticate(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	gen, err := manifest.NewGenerator(cfg.CaseID, cfg.AgentName, cfg.AgentID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.CollectionID = gen.CollectionID()

	params = mergeParams(cfg, params)

	meta := c.SourceMetadata(source)
	if meta == nil {
		meta = map[string]any{}
	}
	if v, ok := params["start_time"]; ok {
		meta["start_time"] = v
	}
	if v, ok := params["end_time"]; ok {
		meta["end_time"] = v
	}
	if err := gen.SetSource(source, c.Provider(), "", "", "", meta); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	var files []string
	if cfg.DryRun {
		logging.LogInfo("Dry-run mode: skipping evidence collection", map[string]string{
			"provider": c.Provider(),
			"source":   source,
		})
		_ = gen.AddNote("Dry run: no evidence collected")
	} else {
		files, err = c.Collect(ctx, source, params)
		if err != nil {
			// Save whatever was registered before the fault.
			result.Errors = append(result.Errors, err.Error())
			saveManifest(gen, c.Provider(), source, cfg.OutputDir, &result)
			return result
		}
	}

	sizeCap := int64(cfg.MaxSizeMB) * 1024 * 1024
	for _, file := range files {
		if sizeCap > 0 && result.TotalSizeBytes >= sizeCap {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"size cap of %d MB reached, skipping %s", cfg.MaxSizeMB, file))
			continue
		}
		item, err := gen.AddEvidenceFile(file, file, "", fileMetadata(file, c.Provider()))
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("registering %s: %v", file, err))
			continue
		}
		result.TotalSizeBytes += item.SizeBytes
	}

	result.EvidenceCount = len(gen.Manifest().EvidenceItems)
	if saveManifest(gen, c.Provider(), source, cfg.OutputDir, &result) {
		result.Success = true
	}
	return result
}

func saveManifest(gen *manifest.Generator, provider, source, outputDir string, result *Result) bool {
	timestamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("manifest_%s_%s_%s.json", provider, source, timestamp)
	path, err := gen.Save(filepath.Join(outputDir, name))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("saving manifest: %v", err))
		return false
	}
	result.ManifestPath = path
	result.ManifestHash = gen.Manifest().ManifestHash
	return true
}

// mergeParams folds the config's extra parameters and collection time
// window into the caller-supplied params. Explicit params win over Extra;
// the caller's map is never mutated.
func mergeParams(cfg Config, params Params) Params {
	merged := make(Params, len(cfg.Extra)+len(params)+2)
	for k, v := range cfg.Extra {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	if !cfg.StartTime.IsZero() {
		merged["start_time"] = cfg.StartTime.UTC().Format(time.RFC3339)
	}
	if !cfg.EndTime.IsZero() {
		merged["end_time"] = cfg.EndTime.UTC().Format(time.RFC3339)
	}
	return merged
}

func fileMetadata(path, provider string) map[string]any {
	meta := map[string]any{"collected_by": provider}
	if info, err := os.Stat(path); err == nil {
		meta["mtime"] = info.ModTime().UTC().Format(time.RFC3339)
	}
	return meta
}

func logResult(result *Result) {
	if result.Success {
		logging.LogInfo("Collection completed", map[string]string{
			"collection_id":  result.CollectionID,
			"evidence_count": fmt.Sprintf("%d", result.EvidenceCount),
			"total_bytes":    fmt.Sprintf("%d", result.TotalSizeBytes),
			"duration":       result.Duration.String(),
		})
	} else {
		logging.LogError("Collection failed", map[string]string{
			"errors": fmt.Sprintf("%v", result.Errors),
		})
	}
}
