package manifest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	gen, err := NewGenerator("CASE-2026-001", "Examiner", "EX001")
	require.NoError(t, err)
	return gen
}

func TestNewGeneratorInitialState(t *testing.T) {
	gen := newTestGenerator(t)
	m := gen.Manifest()

	assert.NotEmpty(t, m.CollectionID)
	assert.Equal(t, "CASE-2026-001", m.CaseID)
	assert.Equal(t, SchemaVersion, m.SchemaVersion)
	assert.NotEmpty(t, m.CreatedAt)
	assert.Equal(t, "undefined", m.Source.SourceType)
	assert.Empty(t, m.EvidenceItems)
	assert.False(t, m.ReadyForBlockchain)
	assert.Empty(t, m.ManifestHash)

	// Exactly one custody entry before any registration.
	require.Len(t, m.ChainOfCustody, 1)
	assert.Equal(t, ActionCollectionStarted, m.ChainOfCustody[0].Action)
	assert.Equal(t, "EX001", m.ChainOfCustody[0].AgentID)
	assert.Contains(t, m.ChainOfCustody[0].Description, "CASE-2026-001")
}

func TestNewGeneratorRequiresAgentIdentity(t *testing.T) {
	_, err := NewGenerator("CASE-1", "", "EX001")
	require.ErrorIs(t, err, ErrEmptyAgentIdentity)
	_, err = NewGenerator("CASE-1", "Examiner", "")
	require.ErrorIs(t, err, ErrEmptyAgentIdentity)
}

func TestWithCollectionID(t *testing.T) {
	gen, err := NewGenerator("CASE-1", "Examiner", "EX001", WithCollectionID("fixed-id"))
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", gen.CollectionID())
}

func TestSetSourceRecordsCustodyEntry(t *testing.T) {
	gen := newTestGenerator(t)
	err := gen.SetSource("cloudtrail", "aws", "us-east-1", "123456789012", "trail/main",
		map[string]any{"api": "cloudtrail.LookupEvents"})
	require.NoError(t, err)

	m := gen.Manifest()
	assert.Equal(t, "cloudtrail", m.Source.SourceType)
	assert.Equal(t, "aws", m.Source.Provider)
	assert.Equal(t, "us-east-1", m.Source.Region)
	assert.Equal(t, "123456789012", m.Source.AccountID)
	assert.Equal(t, "trail/main", m.Source.ResourceID)
	assert.Equal(t, "cloudtrail.LookupEvents", m.Source.AdditionalInfo["api"])

	require.Len(t, m.ChainOfCustody, 2)
	assert.Equal(t, ActionSourceConfigured, m.ChainOfCustody[1].Action)
}

func TestAddEvidenceFile(t *testing.T) {
	content := []byte("container log line\n")
	dir := t.TempDir()
	path := filepath.Join(dir, "docker.log")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	gen := newTestGenerator(t)
	item, err := gen.AddEvidenceFile(path, "/var/lib/docker/containers/abc.log", "", nil)
	require.NoError(t, err)

	sum256 := sha256.Sum256(content)
	sum512 := sha512.Sum512(content)
	assert.Equal(t, "docker.log", item.Filename)
	assert.Equal(t, "/var/lib/docker/containers/abc.log", item.OriginalPath)
	assert.True(t, filepath.IsAbs(item.LocalPath))
	assert.Equal(t, int64(len(content)), item.SizeBytes)
	assert.Equal(t, hex.EncodeToString(sum256[:]), item.SHA256)
	assert.Equal(t, hex.EncodeToString(sum512[:]), item.SHA512)
	assert.Equal(t, "text/plain", item.MIMEType)
	assert.False(t, item.IsInMemory())

	// One evidence item and one matching custody entry, in that order.
	m := gen.Manifest()
	require.Len(t, m.EvidenceItems, 1)
	require.Len(t, m.ChainOfCustody, 2)
	last := m.ChainOfCustody[len(m.ChainOfCustody)-1]
	assert.Equal(t, ActionEvidenceCollected, last.Action)
	assert.Equal(t, item.SHA256, last.HashAfter)
}

func TestAddEvidenceFileNotFound(t *testing.T) {
	gen := newTestGenerator(t)
	_, err := gen.AddEvidenceFile(filepath.Join(t.TempDir(), "missing.log"), "", "", nil)
	require.Error(t, err)

	// Nothing was registered: the invariant is no evidence without digests.
	m := gen.Manifest()
	assert.Empty(t, m.EvidenceItems)
	assert.Len(t, m.ChainOfCustody, 1)
}

func TestAddEvidenceBytes(t *testing.T) {
	data := []byte(`{"events": []}`)

	gen := newTestGenerator(t)
	item, err := gen.AddEvidenceBytes(data, "events.json", "gcp://logging/events", "", nil)
	require.NoError(t, err)

	sum256 := sha256.Sum256(data)
	assert.Equal(t, InMemoryPath, item.LocalPath)
	assert.True(t, item.IsInMemory())
	assert.Equal(t, hex.EncodeToString(sum256[:]), item.SHA256)
	assert.Equal(t, int64(len(data)), item.SizeBytes)
	assert.Equal(t, "application/octet-stream", item.MIMEType)
	assert.Len(t, item.SHA512, 128)
}

func TestEvidenceBytesAgreeWithEvidenceFile(t *testing.T) {
	content := []byte("identical bytes hash identically")
	path := filepath.Join(t.TempDir(), "twin.bin")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	gen := newTestGenerator(t)
	fromFile, err := gen.AddEvidenceFile(path, "", "", nil)
	require.NoError(t, err)
	fromBytes, err := gen.AddEvidenceBytes(content, "twin.bin", "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, fromFile.SHA256, fromBytes.SHA256)
	assert.Equal(t, fromFile.SHA512, fromBytes.SHA512)
}

func TestMIMEDetection(t *testing.T) {
	cases := map[string]string{
		"a.json":    "application/json",
		"a.LOG":     "text/plain",
		"a.yaml":    "application/yaml",
		"a.gz":      "application/gzip",
		"a.unknown": "application/octet-stream",
		"noext":     "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, detectMIMEType(name), name)
	}
}

func TestAddNote(t *testing.T) {
	gen := newTestGenerator(t)
	require.NoError(t, gen.AddNote("first observation"))
	require.NoError(t, gen.AddNote("second observation"))

	notes := gen.Manifest().Notes
	assert.Regexp(t, `^\[.+\] first observation\n\[.+\] second observation$`, notes)
}

func TestFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "item.log")
	require.NoError(t, os.WriteFile(path, []byte("evidence"), 0o600))

	gen := newTestGenerator(t)
	_, err := gen.AddEvidenceFile(path, "", "", nil)
	require.NoError(t, err)

	m, err := gen.Finalize()
	require.NoError(t, err)

	assert.True(t, m.ReadyForBlockchain)
	assert.Len(t, m.ManifestHash, 64)
	completed := 0
	for _, entry := range m.ChainOfCustody {
		if entry.Action == ActionCollectionCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)

	// The self-hash covers the canonical form minus the hash field itself.
	canonical, err := CanonicalJSON(m)
	require.NoError(t, err)
	recomputed := sha256.Sum256(canonical)
	assert.Equal(t, hex.EncodeToString(recomputed[:]), m.ManifestHash)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	gen := newTestGenerator(t)
	first, err := gen.Finalize()
	require.NoError(t, err)
	second, err := gen.Finalize()
	require.NoError(t, err)

	assert.Equal(t, first.ManifestHash, second.ManifestHash)
	assert.Equal(t, len(first.ChainOfCustody), len(second.ChainOfCustody))
}

func TestMutationAfterFinalizeIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.log")
	require.NoError(t, os.WriteFile(path, []byte("late"), 0o600))

	gen := newTestGenerator(t)
	_, err := gen.Finalize()
	require.NoError(t, err)

	_, err = gen.AddEvidenceFile(path, "", "", nil)
	assert.ErrorIs(t, err, ErrManifestFinalized)
	_, err = gen.AddEvidenceBytes([]byte("late"), "late.bin", "", "", nil)
	assert.ErrorIs(t, err, ErrManifestFinalized)
	assert.ErrorIs(t, gen.SetSource("a", "b", "", "", "", nil), ErrManifestFinalized)
	assert.ErrorIs(t, gen.AddNote("too late"), ErrManifestFinalized)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	evidencePath := filepath.Join(dir, "evidence.log")
	require.NoError(t, os.WriteFile(evidencePath, []byte("round trip"), 0o600))

	gen := newTestGenerator(t)
	require.NoError(t, gen.SetSource("container_logs", "docker", "", "", "", nil))
	_, err := gen.AddEvidenceFile(evidencePath, "", "", nil)
	require.NoError(t, err)
	_, err = gen.AddEvidenceBytes([]byte("buffer"), "buffer.bin", "", "", nil)
	require.NoError(t, err)

	saved, err := gen.Save(filepath.Join(dir, "out", "manifest.json"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(saved))

	loaded, err := Load(saved)
	require.NoError(t, err)

	original := gen.Manifest()
	restored := loaded.Manifest()
	assert.Equal(t, original.CollectionID, restored.CollectionID)
	assert.Equal(t, original.CaseID, restored.CaseID)
	assert.Equal(t, original.ManifestHash, restored.ManifestHash)
	assert.Equal(t, original.ReadyForBlockchain, restored.ReadyForBlockchain)

	require.Len(t, restored.EvidenceItems, len(original.EvidenceItems))
	for i, item := range original.EvidenceItems {
		assert.Equal(t, item.SHA256, restored.EvidenceItems[i].SHA256)
		assert.Equal(t, item.SHA512, restored.EvidenceItems[i].SHA512)
	}

	require.Len(t, restored.ChainOfCustody, len(original.ChainOfCustody))
	for i, entry := range original.ChainOfCustody {
		assert.Equal(t, entry.Action, restored.ChainOfCustody[i].Action)
		assert.Equal(t, entry.Timestamp, restored.ChainOfCustody[i].Timestamp)
	}

	// A loaded finalized manifest is a read-only snapshot.
	assert.True(t, loaded.Finalized())
	_, err = loaded.AddEvidenceBytes([]byte("x"), "x", "", "", nil)
	assert.ErrorIs(t, err, ErrManifestFinalized)
}

func TestSaveAutoFinalizes(t *testing.T) {
	gen := newTestGenerator(t)
	path, err := gen.Save(filepath.Join(t.TempDir(), "manifest.json"))
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	m := loaded.Manifest()
	assert.True(t, m.ReadyForBlockchain)
	assert.Len(t, m.ManifestHash, 64)
}

func TestEndToEndCollection(t *testing.T) {
	dir := t.TempDir()
	evidencePath := filepath.Join(dir, "evidence.txt")
	require.NoError(t, os.WriteFile(evidencePath, []byte("exactly 19 bytes !!"), 0o600))

	gen, err := NewGenerator("CASO-001", "P", "P1")
	require.NoError(t, err)
	require.NoError(t, gen.SetSource("docker_logs", "docker", "", "", "", nil))
	_, err = gen.AddEvidenceFile(evidencePath, "", "", nil)
	require.NoError(t, err)

	m, err := gen.Finalize()
	require.NoError(t, err)

	require.Len(t, m.EvidenceItems, 1)
	assert.Equal(t, int64(19), m.EvidenceItems[0].SizeBytes)
	assert.Len(t, m.EvidenceItems[0].SHA256, 64)
	assert.True(t, m.ReadyForBlockchain)

	require.Len(t, m.ChainOfCustody, 4)
	assert.Equal(t, ActionCollectionStarted, m.ChainOfCustody[0].Action)
	assert.Equal(t, ActionSourceConfigured, m.ChainOfCustody[1].Action)
	assert.Equal(t, ActionEvidenceCollected, m.ChainOfCustody[2].Action)
	assert.Equal(t, ActionCollectionCompleted, m.ChainOfCustody[3].Action)
}

func TestManifestCloneDoesNotAlias(t *testing.T) {
	gen := newTestGenerator(t)
	_, err := gen.AddEvidenceBytes([]byte("data"), "a.bin", "", "", map[string]any{"k": "v"})
	require.NoError(t, err)

	m := gen.Manifest()
	m.EvidenceItems[0].SHA256 = "tampered"
	m.EvidenceItems[0].Metadata["k"] = "tampered"
	m.ChainOfCustody[0].Action = "tampered"

	fresh := gen.Manifest()
	assert.NotEqual(t, "tampered", fresh.EvidenceItems[0].SHA256)
	assert.Equal(t, "v", fresh.EvidenceItems[0].Metadata["k"])
	assert.Equal(t, ActionCollectionStarted, fresh.ChainOfCustody[0].Action)
}
