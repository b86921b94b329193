// Package hasher computes and verifies cryptographic digests of evidence
// content. It is independent of any manifest concept: callers get back
// lowercase hex digests and decide what to do with them.
//
// References:
//   - NIST SP 800-86: Guide to Integrating Forensic Techniques
//   - RFC 6234: US Secure Hash Algorithms
package hasher

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/ilexum-group/nimbex/internal/logging"
)

// DefaultChunkSize is the read buffer size used for streamed hashing.
// Peak memory per hash operation is bounded by this value, not the file size.
const DefaultChunkSize = 64 * 1024

var (
	// ErrUnsupportedAlgorithm is returned by New for algorithm names
	// outside the supported set.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrNotAFile is returned when a path exists but is not a regular file.
	ErrNotAFile = errors.New("path is not a regular file")

	// ErrNotADirectory is returned when a path is not a directory.
	ErrNotADirectory = errors.New("path is not a directory")
)

var algorithms = map[string]func() hash.Hash{
	"sha256":   sha256.New,
	"sha384":   sha512.New384,
	"sha512":   sha512.New,
	"sha3_256": sha3.New256,
	"sha3_512": sha3.New512,
	"blake2b": func() hash.Hash {
		h, _ := blake2b.New512(nil) // only errors with a key, none is given
		return h
	},
}

// SupportedAlgorithms returns the sorted list of algorithm names accepted by New.
func SupportedAlgorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result holds the outcome of hashing a single file.
type Result struct {
	Algorithm    string `json:"algorithm"`
	HashValue    string `json:"hash_value"`
	FilePath     string `json:"file_path"`
	FileSize     int64  `json:"file_size_bytes"`
	CalculatedAt string `json:"calculated_at_utc"`
}

// Hasher computes digests with one fixed algorithm and chunk size.
type Hasher struct {
	algorithm string
	chunkSize int
	newHash   func() hash.Hash
}

// New creates a Hasher for the named algorithm. Algorithm names are
// case-insensitive. A chunkSize <= 0 selects DefaultChunkSize.
func New(algorithm string, chunkSize int) (*Hasher, error) {
	algorithm = strings.ToLower(algorithm)
	constructor, ok := algorithms[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedAlgorithm, algorithm, strings.Join(SupportedAlgorithms(), ", "))
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{
		algorithm: algorithm,
		chunkSize: chunkSize,
		newHash:   constructor,
	}, nil
}

// Algorithm returns the algorithm name this Hasher was constructed with.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// HashFile computes the digest of a file, reading it in fixed-size chunks.
// The calculation timestamp is captured before the first read.
func (h *Hasher) HashFile(path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat evidence file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("resolve path %s: %w", path, err)
	}

	calculatedAt := time.Now().UTC().Format(time.RFC3339Nano)

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	digest := h.newHash()
	size, err := h.copyChunks(digest, f)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}

	return Result{
		Algorithm:    h.algorithm,
		HashValue:    hex.EncodeToString(digest.Sum(nil)),
		FilePath:     absPath,
		FileSize:     size,
		CalculatedAt: calculatedAt,
	}, nil
}

// HashBytes computes the digest of an in-memory byte sequence.
func (h *Hasher) HashBytes(data []byte) string {
	digest := h.newHash()
	digest.Write(data)
	return hex.EncodeToString(digest.Sum(nil))
}

// HashStream reads the stream to exhaustion in chunks and returns the
// digest and the number of bytes read. The stream is neither closed nor
// rewound; that is the caller's responsibility.
func (h *Hasher) HashStream(r io.Reader) (string, int64, error) {
	digest := h.newHash()
	size, err := h.copyChunks(digest, r)
	if err != nil {
		return "", size, fmt.Errorf("read stream: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), size, nil
}

// VerifyFile recomputes the digest of path and compares it to expectedHex
// case-insensitively. A mismatch is a normal false outcome, not an error;
// errors follow HashFile's contract.
func (h *Hasher) VerifyFile(path, expectedHex string) (bool, error) {
	result, err := h.HashFile(path)
	if err != nil {
		return false, err
	}
	matches := strings.EqualFold(result.HashValue, expectedHex)
	if matches {
		logging.LogDebug("Hash verification passed", map[string]string{"file": path})
	} else {
		logging.LogWarn("Hash verification failed", map[string]string{
			"file":     path,
			"expected": expectedHex,
			"actual":   result.HashValue,
		})
	}
	return matches, nil
}

// HashDirectory hashes every regular file under dir whose base name matches
// pattern (filepath.Match syntax; empty means "*"), in deterministic
// path-sorted order. Files that fail to read are logged as warnings and
// skipped; one bad file never aborts the batch.
func (h *Hasher) HashDirectory(dir string, recursive bool, pattern string) ([]Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	}
	if pattern == "" {
		pattern = "*"
	}

	paths, err := h.enumerateFiles(dir, recursive, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		result, err := h.HashFile(path)
		if err != nil {
			logging.LogWarn("Skipping unreadable file", map[string]string{
				"file":  path,
				"error": err.Error(),
			})
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (h *Hasher) enumerateFiles(dir string, recursive bool, pattern string) ([]string, error) {
	var paths []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			matched, err := filepath.Match(pattern, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if matched && entry.Type().IsRegular() {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
		return paths, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logging.LogWarn("Skipping unreadable directory entry", map[string]string{
				"path":  path,
				"error": walkErr.Error(),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		matched, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if matched {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// copyChunks streams r into dst using the configured chunk size and
// returns the byte count. Transient read errors propagate; the caller
// decides whether to retry the whole file.
func (h *Hasher) copyChunks(dst hash.Hash, r io.Reader) (int64, error) {
	buf := make([]byte, h.chunkSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			dst.Write(buf[:n]) // hash.Hash.Write never returns an error
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
