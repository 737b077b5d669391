package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordStamps(t *testing.T) {
	j := NewJournal(10)
	ctx := WithOrigin(context.Background(), Origin{IPAddress: "192.168.1.4", UserAgent: "curl/8"})

	e := j.Record(ctx, JournalEntry{Action: ActionDeleteAll, Category: "Tools", Success: true})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, SeverityCritical, e.Severity)
	assert.Equal(t, "192.168.1.4", e.IPAddress)
	assert.Equal(t, "curl/8", e.UserAgent)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, 1, j.Len())
}

func TestJournal_RingKeepsNewest(t *testing.T) {
	j := NewJournal(3)
	for _, cat := range []string{"a", "b", "c", "d", "e"} {
		j.Record(context.Background(), JournalEntry{Action: ActionSale, Category: cat})
	}

	got := j.Recent(JournalFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, "e", got[0].Category)
	assert.Equal(t, "d", got[1].Category)
	assert.Equal(t, "c", got[2].Category)
	assert.Equal(t, 3, j.Len())
}

func TestJournal_RecentFilters(t *testing.T) {
	j := NewJournal(10)
	ctx := context.Background()
	j.Record(ctx, JournalEntry{Action: ActionSale, Category: "Tools"})
	j.Record(ctx, JournalEntry{Action: ActionRestock, Category: "Tools"})
	j.Record(ctx, JournalEntry{Action: ActionSale, Category: "Paint"})

	assert.Len(t, j.Recent(JournalFilter{Category: "Tools"}), 2)
	assert.Len(t, j.Recent(JournalFilter{Action: ActionSale}), 2)
	assert.Len(t, j.Recent(JournalFilter{Category: "Tools", Action: ActionSale}), 1)
	assert.Len(t, j.Recent(JournalFilter{Limit: 1}), 1)
}

func TestJournal_ZeroSizeDisables(t *testing.T) {
	j := NewJournal(0)
	j.Record(context.Background(), JournalEntry{Action: ActionSale})
	assert.Empty(t, j.Recent(JournalFilter{}))
	assert.Equal(t, 0, j.Len())
}

func TestDetermineSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, determineSeverity(ActionReload))
	assert.Equal(t, SeverityMedium, determineSeverity(ActionSale))
	assert.Equal(t, SeverityHigh, determineSeverity(ActionEntryDelete))
	assert.Equal(t, SeverityCritical, determineSeverity(ActionCategoryDelete))
}

func TestOriginFrom(t *testing.T) {
	assert.Equal(t, Origin{}, OriginFrom(context.Background()))

	ctx := WithOrigin(context.Background(), Origin{UserAgent: "inventoryctl"})
	assert.Equal(t, Origin{UserAgent: "inventoryctl"}, OriginFrom(ctx))

	e := NewJournal(4).Record(ctx, JournalEntry{Action: ActionSale, IPAddress: "10.1.1.1"})
	assert.Equal(t, "10.1.1.1", e.IPAddress, "explicit values win over the origin")
	assert.Equal(t, "inventoryctl", e.UserAgent)
}
