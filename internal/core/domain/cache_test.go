package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fingerprintInput() FingerprintInput {
	return FingerprintInput{
		DocumentID: Document{Text: "body"}.Identity(),
		Query:      "what changed?",
		Policy:     DefaultChunkingPolicy(),
		Model:      ModelRef{Provider: AIProviderOllama, Model: "llama3.2"},
		Strategy:   ExecParallel,
	}
}

func TestComputeFingerprint_Deterministic(t *testing.T) {
	a := ComputeFingerprint(fingerprintInput())
	b := ComputeFingerprint(fingerprintInput())

	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)
	assert.Len(t, a.Short(), 12)
}

func TestComputeFingerprint_SensitiveToEveryField(t *testing.T) {
	base := ComputeFingerprint(fingerprintInput())

	mutations := map[string]func(*FingerprintInput){
		"document": func(in *FingerprintInput) { in.DocumentID = Document{Text: "other"}.Identity() },
		"query":    func(in *FingerprintInput) { in.Query = "" },
		"policy":   func(in *FingerprintInput) { in.Policy.OverlapTokens++ },
		"strategy": func(in *FingerprintInput) { in.Policy.Strategy = ChunkFixed },
		"model":    func(in *FingerprintInput) { in.Model.Model = "llama3.1" },
		"provider": func(in *FingerprintInput) { in.Model.Provider = AIProviderOpenAI },
		"exec":     func(in *FingerprintInput) { in.Strategy = ExecSequential },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := fingerprintInput()
			mutate(&in)
			assert.NotEqual(t, base, ComputeFingerprint(in))
		})
	}
}

func TestFingerprint_ShortKeepsShortValues(t *testing.T) {
	assert.Equal(t, "abc", Fingerprint("abc").Short())
}

func TestCacheEntry_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := NewCacheEntry("fp", FinalSummary{Text: "x"}, time.Hour, now)

	assert.Equal(t, now.Add(time.Hour), entry.ExpiresAt())
	assert.False(t, entry.Expired(now))
	assert.False(t, entry.Expired(now.Add(59*time.Minute)))
	assert.True(t, entry.Expired(now.Add(time.Hour)))

	forever := NewCacheEntry("fp", FinalSummary{Text: "x"}, 0, now)
	assert.True(t, forever.ExpiresAt().IsZero())
	assert.False(t, forever.Expired(now.Add(100*365*24*time.Hour)))
}

func TestNewCacheEntry_Size(t *testing.T) {
	now := time.Now()
	small := NewCacheEntry("a", FinalSummary{Text: "short"}, 0, now)
	large := NewCacheEntry("b", FinalSummary{Text: string(make([]byte, 1000))}, 0, now)

	assert.Greater(t, small.SizeBytes, int64(len("short")), "size covers the serialised value")
	assert.Greater(t, large.SizeBytes, small.SizeBytes)
	assert.Equal(t, now, small.CreatedAt)
	assert.Equal(t, now, small.LastAccessedAt)
}
