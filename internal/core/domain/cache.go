package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// FingerprintVersion is bumped whenever prompts or reduce shape change
// in a way that invalidates cached summaries.
const FingerprintVersion = 1

// Fingerprint is the cache key for a summary.
type Fingerprint string

// String returns the string representation.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns an abbreviated form for logs.
func (f Fingerprint) Short() string {
	if len(f) > 12 {
		return string(f[:12])
	}
	return string(f)
}

// FingerprintInput lists everything that determines a summary's content.
type FingerprintInput struct {
	DocumentID string            `json:"document_id"`
	Query      string            `json:"query"`
	Policy     ChunkingPolicy    `json:"policy"`
	Model      ModelRef          `json:"model"`
	Strategy   ExecutionStrategy `json:"strategy"`
}

// ComputeFingerprint hashes the canonical JSON form of in.
// Struct field order fixes the encoding, so equal inputs hash equally.
func ComputeFingerprint(in FingerprintInput) Fingerprint {
	payload := struct {
		Version int `json:"v"`
		FingerprintInput
	}{FingerprintVersion, in}

	// Marshal cannot fail for this shape.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// CacheEntry is a committed summary in durable storage.
type CacheEntry struct {
	Fingerprint    Fingerprint   `json:"fingerprint"`
	Value          FinalSummary  `json:"value"`
	CreatedAt      time.Time     `json:"created_at"`
	TTL            time.Duration `json:"ttl"`
	SizeBytes      int64         `json:"size_bytes"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
}

// ExpiresAt returns when the entry stops being served.
// A zero TTL never expires.
func (e CacheEntry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry is past its TTL at now.
func (e CacheEntry) Expired(now time.Time) bool {
	exp := e.ExpiresAt()
	return !exp.IsZero() && !now.Before(exp)
}

// NewCacheEntry builds an entry, sizing it by its serialised value.
func NewCacheEntry(fp Fingerprint, value FinalSummary, ttl time.Duration, now time.Time) CacheEntry {
	size := int64(len(value.Text))
	if data, err := json.Marshal(value); err == nil {
		size = int64(len(data))
	}
	return CacheEntry{
		Fingerprint:    fp,
		Value:          value,
		CreatedAt:      now,
		TTL:            ttl,
		SizeBytes:      size,
		LastAccessedAt: now,
	}
}

// CacheStats summarises durable cache contents.
type CacheStats struct {
	Entries    int
	TotalBytes int64
	MaxBytes   int64
	Staging    int
}
