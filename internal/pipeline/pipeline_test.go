package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/features/document"
)

type fakeStore struct {
	data map[string][]byte
	err  error
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.data[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

type fakePages struct {
	texts  []string
	idx    int
	failAt int // 1-based page whose Next fails; 0 disables
}

func (p *fakePages) Total() int { return len(p.texts) }

func (p *fakePages) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if p.idx >= len(p.texts) {
		return "", false, nil
	}
	p.idx++
	if p.failAt > 0 && p.idx == p.failAt {
		return "", false, errors.New("damaged page")
	}
	return p.texts[p.idx-1], true, nil
}

type fakeExtractor struct {
	pages *fakePages
	err   error
}

func (e *fakeExtractor) Extract(_ context.Context, _ []byte) (PageIterator, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.pages, nil
}

type fakeEmbedder struct {
	failAt int // 1-based chunk whose embedding fails; 0 disables
	calls  int
}

func (e *fakeEmbedder) EmbedChunks(_ context.Context, chunks []string, done func(i int)) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for i := range chunks {
		e.calls++
		if e.failAt > 0 && i+1 == e.failAt {
			return nil, fmt.Errorf("chunk %d: quota exceeded", i)
		}
		vectors = append(vectors, []float32{float32(i), 0.5})
		if done != nil {
			done(i)
		}
	}
	return vectors, nil
}

type fakeIndex struct {
	upserted  []IndexEntry
	deleted   []int64
	upsertErr error
	deleteErr error
}

func (x *fakeIndex) UpsertChunks(_ context.Context, entries []IndexEntry) error {
	if x.upsertErr != nil {
		return x.upsertErr
	}
	x.upserted = append(x.upserted, entries...)
	return nil
}

func (x *fakeIndex) DeleteByDocument(_ context.Context, documentID int64) error {
	if x.deleteErr != nil {
		return x.deleteErr
	}
	x.deleted = append(x.deleted, documentID)
	return nil
}

type statusUpdate struct {
	id    int64
	patch document.Patch
}

type fakeStatus struct {
	updates []statusUpdate
	err     error
}

func (s *fakeStatus) Update(_ context.Context, id int64, patch document.Patch) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, statusUpdate{id: id, patch: patch})
	return nil
}

func (s *fakeStatus) last(t *testing.T) document.Patch {
	t.Helper()
	require.NotEmpty(t, s.updates)
	return s.updates[len(s.updates)-1].patch
}

type fakeNotifier struct {
	events []ProgressEvent
}

func (n *fakeNotifier) Publish(_ context.Context, ev ProgressEvent) {
	n.events = append(n.events, ev)
}

type fixture struct {
	store     *fakeStore
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	index     *fakeIndex
	status    *fakeStatus
	notifier  *fakeNotifier
	pipeline  *Pipeline
}

func newFixture(pageTexts []string, chunkSize int) *fixture {
	f := &fixture{
		store:     &fakeStore{data: map[string][]byte{"uploads/7.pdf": []byte("%PDF-fake")}},
		extractor: &fakeExtractor{pages: &fakePages{texts: pageTexts}},
		embedder:  &fakeEmbedder{},
		index:     &fakeIndex{},
		status:    &fakeStatus{},
		notifier:  &fakeNotifier{},
	}
	f.pipeline = New(f.store, f.extractor, f.embedder, f.index, f.status, f.notifier, chunkSize)
	return f
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestRunSuccess(t *testing.T) {
	f := newFixture([]string{words(1000), words(1000), words(500)}, 1000)

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.NoError(t, err)

	// 2500 words at a 1000-word window yield three chunks.
	require.Len(t, f.index.upserted, 3)
	for i, entry := range f.index.upserted {
		assert.Equal(t, fmt.Sprintf("7_%d", i), entry.ChunkID)
		assert.Equal(t, int64(7), entry.DocumentID)
		assert.Equal(t, i, entry.ChunkIndex)
		assert.NotEmpty(t, entry.Content)
		assert.Len(t, entry.Vector, 2)
	}
	assert.Equal(t, []int64{7}, f.index.deleted, "stale entries are removed before the new batch")

	last := f.status.last(t)
	require.NotNil(t, last.Status)
	assert.Equal(t, StatusCompleted, *last.Status)
	assert.Equal(t, 100, *last.ProgressPercent)
	assert.Equal(t, "", *last.ErrorMessage)

	require.NotEmpty(t, f.notifier.events)
	final := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Percentage)
}

func TestRunProgressIsMonotone(t *testing.T) {
	f := newFixture([]string{words(700), words(700), words(700), words(700)}, 200)

	err := f.pipeline.Run(context.Background(), 3, "uploads/7.pdf")
	require.NoError(t, err)

	prev := -1
	for _, ev := range f.notifier.events {
		assert.GreaterOrEqual(t, ev.Percentage, prev,
			"percentage regressed at event %q", ev.Message)
		prev = ev.Percentage
	}
	assert.Equal(t, 100, prev)
}

func TestRunStatusSequence(t *testing.T) {
	f := newFixture([]string{words(50)}, 1000)

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.NoError(t, err)

	var statuses []string
	for _, ev := range f.notifier.events {
		if len(statuses) == 0 || statuses[len(statuses)-1] != ev.Status {
			statuses = append(statuses, ev.Status)
		}
	}
	assert.Equal(t, []string{StatusUploading, StatusProcessing, StatusCompleted}, statuses)
}

func TestRunFetchFailure(t *testing.T) {
	f := newFixture([]string{words(50)}, 1000)
	f.store.err = errors.New("bucket unreachable")

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrFetch)

	last := f.status.last(t)
	assert.Equal(t, StatusError, *last.Status)
	assert.Equal(t, ErrorPercent, *last.ProgressPercent)
	assert.Contains(t, *last.ErrorMessage, "bucket unreachable")

	final := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, ErrorPercent, final.Percentage)
	assert.Empty(t, f.index.deleted, "no index mutation on fetch failure")
}

func TestRunExtractionFailure(t *testing.T) {
	f := newFixture(nil, 1000)
	f.extractor.err = errors.New("not a pdf")

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, StatusError, *f.status.last(t).Status)
}

func TestRunPageFailureMidDocument(t *testing.T) {
	f := newFixture([]string{words(10), words(10), words(10)}, 1000)
	f.extractor.pages.failAt = 2

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrExtraction)
	assert.Zero(t, f.embedder.calls, "no embedding after a failed extraction")
}

func TestRunEmptyDocument(t *testing.T) {
	f := newFixture([]string{"", "   \n\t ", ""}, 1000)

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrEmptyDocument)

	last := f.status.last(t)
	assert.Equal(t, StatusError, *last.Status)
	assert.Equal(t, ErrorPercent, *last.ProgressPercent)
	assert.Empty(t, f.index.deleted)
	assert.Empty(t, f.index.upserted)
}

func TestRunEmbeddingFailure(t *testing.T) {
	f := newFixture([]string{words(2500)}, 1000)
	f.embedder.failAt = 2

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "quota exceeded")

	assert.Empty(t, f.index.deleted, "index untouched when embedding fails")
	assert.Empty(t, f.index.upserted)
	assert.Equal(t, StatusError, *f.status.last(t).Status)
}

func TestRunIndexDeleteFailure(t *testing.T) {
	f := newFixture([]string{words(100)}, 1000)
	f.index.deleteErr = errors.New("weaviate down")

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrIndexWrite)
	assert.Empty(t, f.index.upserted)
}

func TestRunIndexUpsertFailure(t *testing.T) {
	f := newFixture([]string{words(100)}, 1000)
	f.index.upsertErr = errors.New("batch rejected")

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.ErrorIs(t, err, ErrIndexWrite)
	assert.Equal(t, StatusError, *f.status.last(t).Status)
}

func TestRunPersistsCounters(t *testing.T) {
	f := newFixture([]string{words(900), words(900)}, 600)

	err := f.pipeline.Run(context.Background(), 9, "uploads/7.pdf")
	require.NoError(t, err)

	var totalPages, processedPages, totalChunks, processedChunks int
	for _, u := range f.status.updates {
		assert.Equal(t, int64(9), u.id)
		if u.patch.TotalPages != nil {
			totalPages = *u.patch.TotalPages
		}
		if u.patch.ProcessedPages != nil {
			processedPages = *u.patch.ProcessedPages
		}
		if u.patch.TotalChunks != nil {
			totalChunks = *u.patch.TotalChunks
		}
		if u.patch.ProcessedChunks != nil {
			processedChunks = *u.patch.ProcessedChunks
		}
	}
	assert.Equal(t, 2, totalPages)
	assert.Equal(t, 2, processedPages)
	assert.Equal(t, 3, totalChunks)
	assert.Equal(t, 3, processedChunks)
}

func TestRunStatusStoreFailureIsNonFatal(t *testing.T) {
	f := newFixture([]string{words(100)}, 1000)
	f.status.err = errors.New("db down")

	err := f.pipeline.Run(context.Background(), 7, "uploads/7.pdf")
	require.NoError(t, err, "row persistence failures must not abort the run")
	assert.Len(t, f.index.upserted, 1)
}
