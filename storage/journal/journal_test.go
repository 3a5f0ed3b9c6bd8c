package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"jokeledger/core/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func evt(kind, id string) *types.Event {
	return &types.Event{Type: kind, Attributes: map[string]string{"id": id, "owner": "0xabc"}}
}

func TestAppendBuildsHashChain(t *testing.T) {
	ctx := context.Background()
	j, err := New(setupTestDB(t))
	require.NoError(t, err)

	at := time.Unix(1_700_000_000, 0)
	first, err := j.Append(ctx, evt("jokes.submission.created", "1"), at)
	require.NoError(t, err)
	second, err := j.Append(ctx, evt("jokes.pending.voted", "1"), at.Add(time.Second))
	require.NoError(t, err)

	require.EqualValues(t, 1, first.Seq)
	require.EqualValues(t, 2, second.Seq)
	require.Empty(t, first.PrevHash)
	require.Equal(t, first.Hash, second.PrevHash)
	require.Len(t, second.Hash, 64)

	seq, head := j.Head()
	require.EqualValues(t, 2, seq)
	require.Equal(t, second.Hash, head)
	require.NoError(t, j.Verify(ctx))
}

func TestListPagesAfterSequence(t *testing.T) {
	ctx := context.Background()
	j, err := New(setupTestDB(t))
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err := j.Append(ctx, evt("jokes.joke.used", fmt.Sprint(i)), time.Unix(int64(i), 0))
		require.NoError(t, err)
	}

	page, err := j.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.EqualValues(t, 3, page[0].Seq)
	require.EqualValues(t, 4, page[1].Seq)

	decoded, err := page[0].Event()
	require.NoError(t, err)
	require.Equal(t, "jokes.joke.used", decoded.Type)
	require.Equal(t, "3", decoded.Attr("id"))

	rest, err := j.List(ctx, 4, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}

func TestReopenResumesChain(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	j, err := New(db)
	require.NoError(t, err)
	first, err := j.Append(ctx, evt("jokes.joke.listed", "1"), time.Unix(10, 0))
	require.NoError(t, err)

	reopened, err := New(db)
	require.NoError(t, err)
	next, err := reopened.Append(ctx, evt("jokes.joke.bought", "1"), time.Unix(11, 0))
	require.NoError(t, err)
	require.EqualValues(t, 2, next.Seq)
	require.Equal(t, first.Hash, next.PrevHash)
	require.NoError(t, reopened.Verify(ctx))
}

func TestVerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	j, err := New(db)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := j.Append(ctx, evt("jokes.dadness.voted", fmt.Sprint(i)), time.Unix(int64(i), 0))
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&Entry{}).Where("seq = ?", 2).Update("attributes", `{"id":"99"}`).Error)
	require.ErrorIs(t, j.Verify(ctx), ErrBrokenChain)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mongo", "")
	require.ErrorIs(t, err, ErrUnknownDriver)
}
