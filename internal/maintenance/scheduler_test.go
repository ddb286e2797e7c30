package maintenance

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakeStore) DeleteOldFiveMinuteBars(now time.Time, horizon time.Duration) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

func TestPruneBarsJobDelegatesToStore(t *testing.T) {
	store := &fakeStore{deleted: 12}
	job := &pruneBarsJob{store: store, log: zerolog.Nop()}

	require.NoError(t, job.Run())
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "prune_bars", job.Name())
}

type fakeArchive struct {
	uploaded map[string][]byte
}

func (a *fakeArchive) Upload(key string, payload []byte) error {
	if a.uploaded == nil {
		a.uploaded = make(map[string][]byte)
	}
	a.uploaded[key] = payload
	return nil
}
func (a *fakeArchive) Download(key string) ([]byte, error) { return a.uploaded[key], nil }

type fakeCache struct {
	deleted []string
}

func (c *fakeCache) Set(key string, payload []byte, ttl time.Duration) error { return nil }
func (c *fakeCache) Get(key string) ([]byte, error)                         { return nil, nil }
func (c *fakeCache) Delete(key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func TestArchiveSweepJobUploadsAndEvicts(t *testing.T) {
	archive := &fakeArchive{}
	cache := &fakeCache{}
	candidates := func() (map[string][]byte, error) {
		return map[string][]byte{"portfolios/main/1.msgpack": []byte("snapshot")}, nil
	}
	job := NewArchiveSweepJob(archive, cache, candidates, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, []byte("snapshot"), archive.uploaded["portfolios/main/1.msgpack"])
	assert.Equal(t, []string{"portfolios/main/1.msgpack"}, cache.deleted)
	assert.Equal(t, "archive_sweep", job.Name())
}
