package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ilexum-group/nimbex/internal/hasher"
	"github.com/ilexum-group/nimbex/internal/logging"
)

// ErrManifestFinalized is returned by mutating operations once Finalize
// has sealed the manifest. Finalization is a terminal state: nothing may
// change the content covered by manifest_hash afterward.
var ErrManifestFinalized = errors.New("manifest is finalized")

// Extension to MIME type mapping used when the caller supplies none.
var mimeTypes = map[string]string{
	".json": "application/json",
	".log":  "text/plain",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".csv":  "text/csv",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".gz":   "application/gzip",
	".zip":  "application/zip",
}

// Generator is the sole mutator of one ForensicManifest. It enforces the
// append-only custody discipline and the digest-on-register invariant:
// evidence is never recorded without both of its digests.
//
// A Generator is meant for single-threaded use by one collection workflow;
// concurrent collections each need their own Generator and output file.
type Generator struct {
	hasher256 *hasher.Hasher
	hasher512 *hasher.Hasher
	manifest  ForensicManifest
	finalized bool
}

// Option customizes generator construction.
type Option func(*options)

type options struct {
	collectionID string
}

// WithCollectionID pre-assigns the collection ID instead of generating one.
func WithCollectionID(id string) Option {
	return func(o *options) { o.collectionID = id }
}

// NewGenerator creates a Generator for one collection run. The manifest
// starts with a placeholder source, an agent resolved from the current
// host, and a COLLECTION_STARTED custody entry.
func NewGenerator(caseID, agentName, agentID string, opts ...Option) (*Generator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	agent, err := NewAgentInfo(agentName, agentID)
	if err != nil {
		return nil, err
	}

	collectionID := o.collectionID
	if collectionID == "" {
		collectionID = uuid.New().String()
	}

	h256, err := hasher.New("sha256", 0)
	if err != nil {
		return nil, err
	}
	h512, err := hasher.New("sha512", 0)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		hasher256: h256,
		hasher512: h512,
		manifest: ForensicManifest{
			CollectionID: collectionID,
			CaseID:       caseID,
			Agent:        agent,
			Source: SourceInfo{
				SourceType:     "undefined",
				Provider:       "undefined",
				AdditionalInfo: map[string]any{},
			},
			SchemaVersion:  SchemaVersion,
			CreatedAt:      utcTimestamp(),
			EvidenceItems:  make([]EvidenceItem, 0),
			ChainOfCustody: make([]ChainOfCustodyEntry, 0),
		},
	}

	g.addCustodyEntry(ActionCollectionStarted,
		fmt.Sprintf("Collection started for case %s", caseID), "", "")

	logging.LogInfo("Manifest generator initialized", map[string]string{
		"collection_id": collectionID,
		"case_id":       caseID,
	})
	return g, nil
}

// Manifest returns a deep copy of the current manifest state.
func (g *Generator) Manifest() ForensicManifest {
	return g.manifest.Clone()
}

// CollectionID returns the manifest's collection identifier.
func (g *Generator) CollectionID() string {
	return g.manifest.CollectionID
}

// Finalized reports whether the manifest has been sealed.
func (g *Generator) Finalized() bool {
	return g.finalized
}

// SetSource replaces the manifest's source information wholesale and
// records a SOURCE_CONFIGURED custody entry.
func (g *Generator) SetSource(sourceType, provider, region, accountID, resourceID string, additional map[string]any) error {
	if g.finalized {
		return ErrManifestFinalized
	}
	g.manifest.Source = SourceInfo{
		SourceType:     sourceType,
		Provider:       provider,
		Region:         region,
		AccountID:      accountID,
		ResourceID:     resourceID,
		AdditionalInfo: copyAnyMap(additional),
	}
	g.addCustodyEntry(ActionSourceConfigured,
		fmt.Sprintf("Source configured: %s (%s)", sourceType, provider), "", "")

	logging.LogInfo("Source configured", map[string]string{
		"source_type": sourceType,
		"provider":    provider,
	})
	return nil
}

// AddEvidenceFile registers a file as evidence. SHA-256 and SHA-512 are
// computed as two independent full reads of the same file; a matching
// EVIDENCE_COLLECTED custody entry carries the SHA-256. The returned item
// is a copy, never an alias into the manifest.
func (g *Generator) AddEvidenceFile(path, originalPath, mimeType string, metadata map[string]any) (EvidenceItem, error) {
	if g.finalized {
		return EvidenceItem{}, ErrManifestFinalized
	}

	res256, err := g.hasher256.HashFile(path)
	if err != nil {
		return EvidenceItem{}, err
	}
	res512, err := g.hasher512.HashFile(path)
	if err != nil {
		return EvidenceItem{}, err
	}

	if originalPath == "" {
		originalPath = path
	}
	if mimeType == "" {
		mimeType = detectMIMEType(path)
	}

	item := EvidenceItem{
		Filename:     filepath.Base(path),
		OriginalPath: originalPath,
		LocalPath:    res256.FilePath,
		SizeBytes:    res256.FileSize,
		SHA256:       res256.HashValue,
		SHA512:       res512.HashValue,
		MIMEType:     mimeType,
		CollectedAt:  utcTimestamp(),
		Metadata:     copyAnyMap(metadata),
	}
	g.appendEvidence(item)

	logging.LogInfo("Evidence added", map[string]string{"filename": item.Filename})
	return item, nil
}

// AddEvidenceBytes registers an in-memory buffer as evidence. No file I/O
// occurs; local_path records that the content never touched disk.
func (g *Generator) AddEvidenceBytes(data []byte, filename, originalPath, mimeType string, metadata map[string]any) (EvidenceItem, error) {
	if g.finalized {
		return EvidenceItem{}, ErrManifestFinalized
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	item := EvidenceItem{
		Filename:     filename,
		OriginalPath: originalPath,
		LocalPath:    InMemoryPath,
		SizeBytes:    int64(len(data)),
		SHA256:       g.hasher256.HashBytes(data),
		SHA512:       g.hasher512.HashBytes(data),
		MIMEType:     mimeType,
		CollectedAt:  utcTimestamp(),
		Metadata:     copyAnyMap(metadata),
	}
	g.appendEvidence(item)

	logging.LogInfo("In-memory evidence added", map[string]string{"filename": filename})
	return item, nil
}

// AddNote appends a timestamp-prefixed line to the manifest's free-text
// notes. Notes are append-only; custody and evidence are unaffected.
func (g *Generator) AddNote(note string) error {
	if g.finalized {
		return ErrManifestFinalized
	}
	line := fmt.Sprintf("[%s] %s", utcTimestamp(), note)
	if g.manifest.Notes == "" {
		g.manifest.Notes = line
	} else {
		g.manifest.Notes += "\n" + line
	}
	return nil
}

// Finalize seals the manifest: it appends COLLECTION_COMPLETED, marks the
// manifest ready for blockchain anchoring and computes the self-hash over
// the canonical form (see CanonicalJSON). Finalize is idempotent; repeated
// calls return the sealed manifest unchanged.
func (g *Generator) Finalize() (ForensicManifest, error) {
	if g.finalized {
		return g.Manifest(), nil
	}

	g.addCustodyEntry(ActionCollectionCompleted, "Collection completed", "", "")
	g.manifest.ReadyForBlockchain = true

	canonical, err := CanonicalJSON(g.manifest)
	if err != nil {
		return ForensicManifest{}, err
	}
	g.manifest.ManifestHash = g.hasher256.HashBytes(canonical)
	g.finalized = true

	logging.LogInfo("Manifest finalized", map[string]string{
		"collection_id": g.manifest.CollectionID,
		"manifest_hash": g.manifest.ManifestHash[:16],
	})
	return g.Manifest(), nil
}

// Save finalizes the manifest if needed and writes it as indented UTF-8
// JSON to path, creating parent directories. Returns the absolute path
// written.
func (g *Generator) Save(path string) (string, error) {
	if !g.finalized {
		if _, err := g.Finalize(); err != nil {
			return "", err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create manifest directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(g.manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve manifest path: %w", err)
	}

	logging.LogInfo("Manifest saved", map[string]string{"path": absPath})
	return absPath, nil
}

// Load reads a persisted manifest document back into a Generator. The
// loaded Generator carries fresh hashers; ready_for_blockchain and
// manifest_hash reflect what was persisted, not a recomputation. Loading
// does not verify the self-hash; that is a separate, caller-invoked step.
func Load(path string) (*Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m ForensicManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.SchemaVersion == "" {
		m.SchemaVersion = SchemaVersion
	}
	if m.EvidenceItems == nil {
		m.EvidenceItems = make([]EvidenceItem, 0)
	}
	if m.ChainOfCustody == nil {
		m.ChainOfCustody = make([]ChainOfCustodyEntry, 0)
	}

	h256, err := hasher.New("sha256", 0)
	if err != nil {
		return nil, err
	}
	h512, err := hasher.New("sha512", 0)
	if err != nil {
		return nil, err
	}

	return &Generator{
		hasher256: h256,
		hasher512: h512,
		manifest:  m,
		finalized: m.ReadyForBlockchain,
	}, nil
}

func (g *Generator) appendEvidence(item EvidenceItem) {
	// Evidence first, then the custody entry referencing its hash.
	g.manifest.EvidenceItems = append(g.manifest.EvidenceItems, item)
	g.addCustodyEntry(ActionEvidenceCollected,
		fmt.Sprintf("Evidence collected: %s", item.Filename), "", item.SHA256)
}

func (g *Generator) addCustodyEntry(action, description, hashBefore, hashAfter string) {
	g.manifest.ChainOfCustody = append(g.manifest.ChainOfCustody, ChainOfCustodyEntry{
		Action:      action,
		Timestamp:   utcTimestamp(),
		AgentID:     g.manifest.Agent.AgentID,
		Description: description,
		HashBefore:  hashBefore,
		HashAfter:   hashAfter,
	})
}

func detectMIMEType(path string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}
