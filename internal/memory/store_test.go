package memory

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molthub/warren/internal/store"
	"github.com/molthub/warren/internal/telemetry"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "warren.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db.Handle(), telemetry.NewLogger("error", "text"))
	require.NoError(t, err)

	// Deterministic, strictly increasing clock for created_at ordering.
	base := time.Unix(1_700_000_000, 0)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	return s, db.Handle()
}

func seedPersona(t *testing.T, db *sql.DB, id, pool string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO personas (id, name, pool, credential_hash, created_at, last_active_at)
		VALUES (?, ?, ?, '', ?, ?)
	`, id, "persona-"+id, pool, time.Now(), time.Now())
	require.NoError(t, err)
}

func TestRecord_ClampsAndTruncates(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "primary")
	ctx := context.Background()

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}

	require.NoError(t, s.Record(ctx, Input{
		PersonaID:  "p1",
		Type:       TypeInsight,
		Topic:      string(long),
		Content:    string(long),
		Importance: 9,
	}))
	require.NoError(t, s.Record(ctx, Input{
		PersonaID:  "p1",
		Type:       TypeStance,
		Topic:      "t",
		Content:    "c",
		Importance: 0,
	}))

	recs, err := s.Retrieve(ctx, "p1", "", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 5, recs[0].Importance, "importance clamps to 5")
	assert.Equal(t, 1, recs[1].Importance, "importance clamps to 1")
	assert.Len(t, recs[0].Topic, maxTopicLen)
	assert.Len(t, recs[0].Content, maxContentLen)
}

func TestRecord_CapacityBound(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "secondary")
	s.capSecondary = 5
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Record(ctx, Input{
			PersonaID:  "p1",
			Type:       TypeInteraction,
			Topic:      "topic",
			Content:    "content",
			Importance: 1 + i%5,
		}))

		count, err := s.Count(ctx, "p1")
		require.NoError(t, err)
		assert.LessOrEqual(t, count, 5, "capacity invariant must hold after every record call")
	}
}

func TestRecord_EvictionOrder(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "primary")
	s.capPrimary = 5
	ctx := context.Background()

	// Oldest record carries the lowest importance.
	importances := []int{1, 3, 3, 3, 3}
	for i, imp := range importances {
		require.NoError(t, s.Record(ctx, Input{
			PersonaID:  "p1",
			Type:       TypeInsight,
			Topic:      "topic",
			Content:    "record-" + string(rune('a'+i)),
			Importance: imp,
		}))
	}

	// A sixth insert evicts the importance-1 record and nothing else.
	require.NoError(t, s.Record(ctx, Input{
		PersonaID:  "p1",
		Type:       TypeInsight,
		Topic:      "topic",
		Content:    "newcomer",
		Importance: 2,
	}))

	count, err := s.Count(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	recs, err := s.Retrieve(ctx, "p1", "", 10)
	require.NoError(t, err)
	for _, rec := range recs {
		assert.NotEqual(t, "record-a", rec.Content, "lowest-importance record must be evicted")
	}

	var found bool
	for _, rec := range recs {
		if rec.Content == "newcomer" {
			found = true
		}
	}
	assert.True(t, found, "new record must survive the eviction")
}

func TestRecord_EvictionTieBreaksOldest(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "primary")
	s.capPrimary = 3
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, s.Record(ctx, Input{
			PersonaID: "p1", Type: TypeStance, Topic: "t", Content: content, Importance: 2,
		}))
	}

	require.NoError(t, s.Record(ctx, Input{
		PersonaID: "p1", Type: TypeStance, Topic: "t", Content: "fourth", Importance: 2,
	}))

	recs, err := s.Retrieve(ctx, "p1", "", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.NotEqual(t, "first", rec.Content, "oldest among equal importance is evicted first")
	}
}

func TestRetrieve_ChannelPartition(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "primary")
	ctx := context.Background()

	// Five channel-matching records, five generic, matching ones less important.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, Input{
			PersonaID: "p1", Type: TypeInsight, Topic: "t",
			Content: "chan", Importance: 2, ChannelSlug: "philosophy",
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, Input{
			PersonaID: "p1", Type: TypeInsight, Topic: "t",
			Content: "generic", Importance: 5,
		}))
	}

	recs, err := s.Retrieve(ctx, "p1", "philosophy", 6)
	require.NoError(t, err)
	require.Len(t, recs, 6)

	// Channel-affine records come first, capped at the slot limit.
	for i := 0; i < channelSlots; i++ {
		assert.Equal(t, "philosophy", recs[i].ChannelSlug)
	}
	assert.Equal(t, "", recs[channelSlots].ChannelSlug)
}

func TestRetrieve_Deterministic(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "primary")
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Record(ctx, Input{
			PersonaID: "p1", Type: TypeLearning, Topic: "t",
			Content: "rec", Importance: 1 + i%5,
		}))
	}

	first, err := s.Retrieve(ctx, "p1", "", 5)
	require.NoError(t, err)
	second, err := s.Retrieve(ctx, "p1", "", 5)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "retrieval order must be deterministic")
	}
}

func TestRetrieve_TouchesLastAccessed(t *testing.T) {
	s, db := newTestStore(t)
	seedPersona(t, db, "p1", "primary")
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Input{
		PersonaID: "p1", Type: TypeInsight, Topic: "t", Content: "c", Importance: 3,
	}))

	recs, err := s.Retrieve(ctx, "p1", "", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].LastAccessedAt.IsZero(), "first retrieval sees untouched record")

	s.Wait()

	recs, err = s.Retrieve(ctx, "p1", "", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].LastAccessedAt.IsZero(), "touch lands after Wait")
	s.Wait()
}
