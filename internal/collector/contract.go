// Package collector defines the contract every provider adapter must honor
// and the runner that drives one collection through the manifest generator.
package collector

import (
	"context"
	"errors"
	"time"
)

// ErrAuthentication wraps provider authentication failures.
var ErrAuthentication = errors.New("authentication failed")

// ErrUnsupportedSource is returned when a source type is not offered by a
// provider adapter.
var ErrUnsupportedSource = errors.New("unsupported source type")

// Params carries provider-specific collection parameters, such as a
// container ID or a namespace.
type Params map[string]string

// Collector is implemented by every provider adapter (Docker, Kubernetes,
// cloud platforms). Adapters are thin: they fetch records, write them as
// files, and hand the files to the runner; all integrity bookkeeping
// happens in the manifest generator.
type Collector interface {
	// Provider returns the platform name, e.g. "docker".
	Provider() string

	// SupportedSources lists the source types this adapter can collect.
	SupportedSources() []string

	// Authenticate establishes connectivity with the provider.
	Authenticate(ctx context.Context) error

	// Collect fetches evidence for one source type and returns the paths
	// of the files it produced.
	Collect(ctx context.Context, source string, params Params) ([]string, error)

	// SourceMetadata describes the provider environment for the manifest's
	// source record.
	SourceMetadata(source string) map[string]any
}

// Config holds the settings for one collection run.
type Config struct {
	CaseID    string
	AgentName string
	AgentID   string
	OutputDir string
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	MaxSizeMB int
	Extra     map[string]string
}

// Result reports the outcome of one collection run back to the caller.
type Result struct {
	Success        bool
	CollectionID   string
	ManifestPath   string
	ManifestHash   string
	EvidenceCount  int
	TotalSizeBytes int64
	Duration       time.Duration
	Warnings       []string
	Errors         []string
}
