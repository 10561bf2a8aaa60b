package missingfonts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMissingReturnsOnlyNewScripts(t *testing.T) {
	tr := NewTracker()

	added := tr.RecordMissing([]string{"Grek", "Cyrl"})
	assert.Equal(t, []string{"Grek", "Cyrl"}, added)

	st, ok := tr.State("Grek")
	require.True(t, ok)
	assert.Equal(t, StateNotified, st)

	assert.Empty(t, tr.RecordMissing([]string{"Grek"}))
	assert.Equal(t, []string{"Hebr"}, tr.RecordMissing([]string{"Cyrl", "Hebr"}))
	assert.Equal(t, 3, tr.Len())
}

func TestRecordMissingNormalizesInput(t *testing.T) {
	tr := NewTracker()
	added := tr.RecordMissing([]string{" Grek ", "", "Grek", "Arab"})
	assert.Equal(t, []string{"Grek", "Arab"}, added)
}

func TestIgnoreAllIsIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.RecordMissing([]string{"Grek", "Cyrl"})
	tr.TakeNotified()
	tr.RecordMissing([]string{"Arab"})

	tr.IgnoreAll()
	once := tr.PersistIgnored()
	tr.IgnoreAll()
	assert.Equal(t, once, tr.PersistIgnored())
	assert.ElementsMatch(t, []string{"Grek", "Cyrl", "Arab"}, once)
}

func TestIgnoredNeverNotified(t *testing.T) {
	tr := NewTracker()
	tr.SeedIgnored([]string{"Zmth"})
	tr.RecordMissing([]string{"Zmth", "Armn"})

	assert.Equal(t, []string{"Armn"}, tr.CurrentlyNotified())
	tr.IgnoreAll()
	assert.Empty(t, tr.CurrentlyNotified())
}

func TestSeedIgnoredKeepsTrackedState(t *testing.T) {
	tr := NewTracker()
	tr.RecordMissing([]string{"Grek"})
	tr.SeedIgnored([]string{"Grek", "Armn"})

	st, _ := tr.State("Grek")
	assert.Equal(t, StateNotified, st)
	st, _ = tr.State("Armn")
	assert.Equal(t, StateIgnored, st)
}

func TestTakeNotifiedMovesToProcessed(t *testing.T) {
	tr := NewTracker()
	tr.RecordMissing([]string{"Grek", "Cyrl"})

	assert.Equal(t, []string{"Grek", "Cyrl"}, tr.TakeNotified())
	assert.Empty(t, tr.CurrentlyNotified())
	st, _ := tr.State("Cyrl")
	assert.Equal(t, StateProcessed, st)

	// processed scripts stay processed
	tr.MarkProcessed([]string{"Cyrl"})
	assert.Empty(t, tr.RecordMissing([]string{"Cyrl"}))
}

func TestMarkProcessedLeavesIgnored(t *testing.T) {
	tr := NewTracker()
	tr.SeedIgnored([]string{"Zmth"})
	tr.MarkProcessed([]string{"Zmth", "Unknown"})

	st, _ := tr.State("Zmth")
	assert.Equal(t, StateIgnored, st)
	_, ok := tr.State("Unknown")
	assert.False(t, ok)
}
