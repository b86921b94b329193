// Package manifest - forensic manifest structures for cloud evidence collection.
// This is the standardized record format shared by all Nimbex provider
// adapters and consumed by downstream verification and custody tooling.
package manifest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"runtime"
	"time"
)

// SchemaVersion identifies the persisted manifest document format.
const SchemaVersion = "1.0.0"

// InMemoryPath is the local_path value persisted for evidence that was
// registered from a memory buffer and never touched disk. Kept in the wire
// format for interoperability with existing manifests; code should use
// EvidenceItem.IsInMemory instead of comparing against this string.
const InMemoryPath = "[in-memory]"

// Chain of custody actions. The set is extensible; these are the actions
// the generator itself records.
const (
	ActionCollectionStarted   = "COLLECTION_STARTED"
	ActionSourceConfigured    = "SOURCE_CONFIGURED"
	ActionEvidenceCollected   = "EVIDENCE_COLLECTED"
	ActionCollectionCompleted = "COLLECTION_COMPLETED"
)

// ErrEmptyAgentIdentity is returned when an agent name or ID is missing.
var ErrEmptyAgentIdentity = errors.New("agent name and agent id must be non-empty")

// AgentInfo identifies who performed the collection. Populated once at
// collection start and immutable afterward.
type AgentInfo struct {
	Name      string `json:"name"`
	AgentID   string `json:"agent_id"`
	Hostname  string `json:"hostname"`
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
	OSInfo    string `json:"os_info"`
}

// NewAgentInfo builds an AgentInfo for the current host. Hostname,
// username, IP address and OS description are resolved from the
// environment; name and agentID are caller-supplied and required.
func NewAgentInfo(name, agentID string) (AgentInfo, error) {
	if name == "" || agentID == "" {
		return AgentInfo{}, ErrEmptyAgentIdentity
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	return AgentInfo{
		Name:      name,
		AgentID:   agentID,
		Hostname:  hostname,
		Username:  currentUsername(),
		IPAddress: hostIPAddress(hostname),
		OSInfo:    fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH),
	}, nil
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}

func hostIPAddress(hostname string) string {
	addrs, err := net.LookupIP(hostname)
	if err == nil {
		for _, addr := range addrs {
			if v4 := addr.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "127.0.0.1"
}

// SourceInfo identifies where evidence came from.
type SourceInfo struct {
	SourceType     string         `json:"source_type"`
	Provider       string         `json:"provider"`
	Region         string         `json:"region"`
	AccountID      string         `json:"account_id"`
	ResourceID     string         `json:"resource_id"`
	AdditionalInfo map[string]any `json:"additional_info"`
}

// EvidenceItem is one collected artifact with its recorded digests and
// provenance. SHA256 and SHA512 are always both present and both derived
// from identical input bytes.
type EvidenceItem struct {
	Filename     string         `json:"filename"`
	OriginalPath string         `json:"original_path"`
	LocalPath    string         `json:"local_path"`
	SizeBytes    int64          `json:"size_bytes"`
	SHA256       string         `json:"sha256"`
	SHA512       string         `json:"sha512"`
	MIMEType     string         `json:"mime_type"`
	CollectedAt  string         `json:"collected_at"`
	Metadata     map[string]any `json:"metadata"`
}

// IsInMemory reports whether this evidence exists only as a memory buffer
// and cannot be re-verified from disk.
func (e EvidenceItem) IsInMemory() bool {
	return e.LocalPath == InMemoryPath
}

// ChainOfCustodyEntry is one append-only audit record. Entries are never
// mutated or removed once added, and their order is chronological.
type ChainOfCustodyEntry struct {
	Action      string `json:"action"`
	Timestamp   string `json:"timestamp"`
	AgentID     string `json:"agent_id"`
	Description string `json:"description"`
	HashBefore  string `json:"hash_before"`
	HashAfter   string `json:"hash_after"`
}

// ForensicManifest is the complete, self-describing record of one
// collection run. Evidence items are kept in collection order; custody
// entries in chronological order.
type ForensicManifest struct {
	CollectionID       string                `json:"collection_id"`
	CaseID             string                `json:"case_id"`
	Agent              AgentInfo             `json:"agent"`
	Source             SourceInfo            `json:"source"`
	SchemaVersion      string                `json:"schema_version"`
	CreatedAt          string                `json:"created_at"`
	EvidenceItems      []EvidenceItem        `json:"evidence_items"`
	ChainOfCustody     []ChainOfCustodyEntry `json:"chain_of_custody"`
	Notes              string                `json:"notes"`
	ReadyForBlockchain bool                  `json:"ready_for_blockchain"`
	ManifestHash       string                `json:"manifest_hash"`
}

// Clone returns a deep copy of the manifest. Callers holding a clone can
// never alias the generator's internal state.
func (m ForensicManifest) Clone() ForensicManifest {
	out := m
	out.Source.AdditionalInfo = copyAnyMap(m.Source.AdditionalInfo)
	out.EvidenceItems = make([]EvidenceItem, len(m.EvidenceItems))
	for i, item := range m.EvidenceItems {
		item.Metadata = copyAnyMap(item.Metadata)
		out.EvidenceItems[i] = item
	}
	out.ChainOfCustody = make([]ChainOfCustodyEntry, len(m.ChainOfCustody))
	copy(out.ChainOfCustody, m.ChainOfCustody)
	return out
}

func copyAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func utcTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
