package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/riskvault/riskerr"
)

var base = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

func sampleRecords() []LogRecord {
	return []LogRecord{
		{Timestamp: at(20), EventType: EventFailedLogin, SourceIP: "10.0.0.10", Username: "alice"},
		{Timestamp: at(0), EventType: EventFailedLogin, SourceIP: "10.0.0.10", Username: "alice"},
		{Timestamp: at(10), EventType: EventConnectionAttempt, SourceIP: "203.0.113.9", DestinationPort: Port(23)},
		{Timestamp: at(10), EventType: EventConnectionAttempt, SourceIP: "203.0.113.9", DestinationPort: Port(22)},
		{Timestamp: at(30), EventType: EventSuccessfulLogin},
		{EventType: EventFailedLogin, SourceIP: "10.0.0.11"},
		{Timestamp: at(40)},
	}
}

func TestNewTable_OrdersAndAssignsSeq(t *testing.T) {
	table := NewTable(sampleRecords())

	require.Equal(t, 5, table.Len())
	assert.Equal(t, 7, table.InputSize())

	var seqs []int
	for _, r := range table.Records() {
		seqs = append(seqs, r.Seq)
	}
	// Records 2 and 3 share a timestamp and keep their input order.
	assert.Equal(t, []int{1, 2, 3, 0, 4}, seqs)
}

func TestNewTable_RejectsMalformed(t *testing.T) {
	table := NewTable(sampleRecords())

	rejected := table.Rejected()
	require.Len(t, rejected, 2)
	assert.Equal(t, 5, rejected[0].Index)
	assert.Equal(t, 6, rejected[1].Index)
	for _, r := range rejected {
		assert.True(t, errors.Is(r.Err, riskerr.ErrMalformedRecord))
		assert.NotEmpty(t, r.Reason)
	}
}

func TestNewTable_AllMalformedIsEmpty(t *testing.T) {
	table := NewTable([]LogRecord{{Message: "nothing useful"}})

	assert.True(t, table.Empty())
	assert.Len(t, table.Rejected(), 1)
}

func TestTable_ByType(t *testing.T) {
	table := NewTable(sampleRecords())

	assert.Len(t, table.ByType(EventFailedLogin), 2)
	assert.Len(t, table.ByType(EventConnectionAttempt, EventSuccessfulLogin), 3)
	assert.Empty(t, table.ByType(EventProcessCrash))
}

func TestTable_BySourceAndUnknown(t *testing.T) {
	table := NewTable(sampleRecords())

	assert.Len(t, table.BySource("10.0.0.10"), 2)
	assert.Len(t, table.BySource(UnknownSource), 1)
	assert.Len(t, table.BySource(""), 1, "empty source maps to the unknown group")
	assert.Equal(t, []string{"10.0.0.10", "203.0.113.9", UnknownSource}, table.Sources())
}

func TestTable_Between(t *testing.T) {
	table := NewTable(sampleRecords())

	got := table.Between(at(10), at(20))
	require.Len(t, got, 3)
	assert.Equal(t, at(10), got[0].Timestamp)
	assert.Equal(t, at(20), got[2].Timestamp)
	assert.Empty(t, table.Between(at(100), at(200)))
}

func TestTable_GroupBySource(t *testing.T) {
	groups := NewTable(sampleRecords()).GroupBySource()

	require.Len(t, groups, 3)
	alice := groups["10.0.0.10"]
	require.Len(t, alice, 2)
	assert.True(t, alice[0].Timestamp.Before(alice[1].Timestamp))
}

func TestTable_QueriesReturnCopies(t *testing.T) {
	table := NewTable(sampleRecords())

	records := table.Records()
	records[0].SourceIP = "tampered"

	assert.NotEqual(t, "tampered", table.Records()[0].SourceIP)
}

func TestTable_Span(t *testing.T) {
	first, last := NewTable(sampleRecords()).Span()
	assert.Equal(t, at(0), first)
	assert.Equal(t, at(30), last)

	first, last = NewTable(nil).Span()
	assert.True(t, first.IsZero())
	assert.True(t, last.IsZero())
}

type stubFilter struct {
	source string
	err    error
}

func (f stubFilter) Exclude(r LogRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return r.SourceIP == f.source, nil
}

func TestNewTable_WithFilter(t *testing.T) {
	table := NewTable(sampleRecords(), WithFilter(stubFilter{source: "203.0.113.9"}))

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 2, table.Excluded())
	assert.Empty(t, table.BySource("203.0.113.9"))
}

func TestNewTable_FilterErrorKeepsRecord(t *testing.T) {
	table := NewTable(sampleRecords(), WithFilter(stubFilter{err: errors.New("boom")}))

	assert.Equal(t, 5, table.Len())
	assert.Zero(t, table.Excluded())
}
