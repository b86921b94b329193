// Package verify re-checks persisted evidence against the digests recorded
// in a forensic manifest.
package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ilexum-group/nimbex/internal/hasher"
	"github.com/ilexum-group/nimbex/pkg/manifest"
)

// Status classifies the outcome of verifying one evidence item.
type Status string

const (
	// StatusOK means the recomputed SHA-256 matches the recorded one.
	StatusOK Status = "OK"
	// StatusMismatch means the file exists but its content changed.
	StatusMismatch Status = "MISMATCH"
	// StatusMissing means the file recorded in local_path no longer exists.
	StatusMissing Status = "MISSING"
	// StatusSkipped means the evidence was in-memory only and cannot be
	// re-verified from disk.
	StatusSkipped Status = "SKIPPED"
)

// Report is the verification result for one evidence item.
type Report struct {
	Filename  string
	LocalPath string
	Status    Status
	Expected  string
	Actual    string
}

// Summary aggregates a full manifest verification.
type Summary struct {
	Reports      []Report
	ManifestHash string
	HashRecorded string
	HashVerified bool
	AllValid     bool
}

// Manifest recomputes each evidence item's SHA-256 from its local_path and
// compares it to the recorded value. Missing files are reported distinctly
// from content mismatches; in-memory items are skipped. A mismatch is a
// normal outcome, never an error.
func Manifest(m manifest.ForensicManifest) (Summary, error) {
	h, err := hasher.New("sha256", 0)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Reports:      make([]Report, 0, len(m.EvidenceItems)),
		AllValid:     true,
		HashRecorded: m.ManifestHash,
	}

	for _, item := range m.EvidenceItems {
		report := Report{
			Filename:  item.Filename,
			LocalPath: item.LocalPath,
			Expected:  item.SHA256,
		}

		switch {
		case item.IsInMemory():
			report.Status = StatusSkipped
		default:
			result, err := h.HashFile(item.LocalPath)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				report.Status = StatusMissing
				summary.AllValid = false
			case err != nil:
				return Summary{}, fmt.Errorf("verify %s: %w", item.Filename, err)
			case strings.EqualFold(result.HashValue, item.SHA256):
				report.Status = StatusOK
				report.Actual = result.HashValue
			default:
				report.Status = StatusMismatch
				report.Actual = result.HashValue
				summary.AllValid = false
			}
		}

		summary.Reports = append(summary.Reports, report)
	}

	// Recompute the self-hash when the manifest was sealed. A stale hash
	// means the document itself was altered after finalization.
	if m.ManifestHash != "" {
		canonical, err := manifest.CanonicalJSON(m)
		if err != nil {
			return Summary{}, err
		}
		summary.ManifestHash = h.HashBytes(canonical)
		summary.HashVerified = summary.ManifestHash == m.ManifestHash
		if !summary.HashVerified {
			summary.AllValid = false
		}
	}

	return summary, nil
}

// ManifestFile loads a persisted manifest document and verifies it.
func ManifestFile(path string) (Summary, error) {
	gen, err := manifest.Load(path)
	if err != nil {
		return Summary{}, err
	}
	return Manifest(gen.Manifest())
}
