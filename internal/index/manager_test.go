package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

type fakeLoader struct{}

func (fakeLoader) Load(ctx context.Context, path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []string{string(content)}, nil
}

type fakeChunker struct{}

func (fakeChunker) Chunk(fileName, pageLabel, text string) []domain.Passage {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []domain.Passage{{
		ID:   fileName + "#" + pageLabel,
		Text: text,
		Metadata: map[string]string{
			domain.MetaFileName:  fileName,
			domain.MetaPageLabel: pageLabel,
		},
	}}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string   { return "fake" }
func (fakeEmbedder) Dimension() int { return 3 }
func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// fakeStore records inserts and serves Filenames from passage metadata, the
// way the real backends do.
type fakeStore struct {
	passages     []domain.Passage
	dropped      bool
	filenamesErr error
	dropErr      error
}

func (s *fakeStore) Exists(ctx context.Context) (bool, error) {
	return len(s.passages) > 0, nil
}

func (s *fakeStore) Filenames(ctx context.Context) (map[string]struct{}, error) {
	if s.filenamesErr != nil {
		return nil, s.filenamesErr
	}
	names := make(map[string]struct{})
	for _, p := range s.passages {
		if name := p.FileName(); name != "" {
			names[name] = struct{}{}
		}
	}
	return names, nil
}

func (s *fakeStore) Insert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	s.passages = append(s.passages, passages...)
	return nil
}

func (s *fakeStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedPassage, error) {
	var out []domain.RetrievedPassage
	for _, p := range s.passages {
		if len(out) == topK {
			break
		}
		out = append(out, domain.RetrievedPassage{Passage: p, Score: 1, Scored: true})
	}
	return out, nil
}

func (s *fakeStore) Count(ctx context.Context) (int, error) { return len(s.passages), nil }

func (s *fakeStore) Drop(ctx context.Context) error {
	if s.dropErr != nil {
		return s.dropErr
	}
	s.dropped = true
	s.passages = nil
	return nil
}

func (s *fakeStore) Close() error { return nil }

func newTestManager(store *fakeStore, storePath string) *Manager {
	return NewManager(Options{
		Log:        zap.NewNop(),
		StorePath:  storePath,
		Collection: "test",
		OpenStore: func(ctx context.Context) (vectorstore.Store, error) {
			return store, nil
		},
		Loader:   fakeLoader{},
		Chunker:  fakeChunker{},
		Embedder: fakeEmbedder{},
	})
}

func writeSourceDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// markExisting makes the storage path non-empty so the manager takes the
// incremental path.
func markExisting(t *testing.T, storePath string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(storePath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(storePath, "test.db"), []byte("x"), 0o644))
}

func TestBuildOrUpdateFullBuild(t *testing.T) {
	store := &fakeStore{}
	storePath := filepath.Join(t.TempDir(), "vector_store")
	mgr := newTestManager(store, storePath)

	src := writeSourceDir(t, map[string]string{
		"a.txt": "alpha content",
		"b.txt": "beta content",
	})

	added, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, store.passages, 2)
	assert.Equal(t, uint64(1), mgr.Generation())
}

func TestBuildOrUpdateIncremental(t *testing.T) {
	store := &fakeStore{}
	storePath := filepath.Join(t.TempDir(), "vector_store")
	markExisting(t, storePath)
	mgr := newTestManager(store, storePath)

	src := writeSourceDir(t, map[string]string{"a.txt": "alpha content"})
	added, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	gen := mgr.Generation()

	// Re-submitting the same batch changes nothing.
	added, err = mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, store.passages, 1)
	assert.Equal(t, gen, mgr.Generation(), "generation must not advance on a no-op update")

	// A batch with one new file indexes only that file.
	src2 := writeSourceDir(t, map[string]string{
		"a.txt": "alpha content",
		"b.txt": "beta content",
	})
	added, err = mgr.BuildOrUpdate(context.Background(), src2)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, store.passages, 2)
	assert.Equal(t, gen+1, mgr.Generation())
}

type failingEmbedder struct {
	failOn string
}

func (e failingEmbedder) Name() string   { return "failing" }
func (e failingEmbedder) Dimension() int { return 3 }
func (e failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.failOn) {
		return nil, assert.AnError
	}
	return []float32{1, 0, 0}, nil
}

func TestBuildOrUpdatePartialFailureAdvancesGeneration(t *testing.T) {
	store := &fakeStore{}
	mgr := NewManager(Options{
		Log:        zap.NewNop(),
		StorePath:  filepath.Join(t.TempDir(), "vector_store"),
		Collection: "test",
		OpenStore: func(ctx context.Context) (vectorstore.Store, error) {
			return store, nil
		},
		Loader:   fakeLoader{},
		Chunker:  fakeChunker{},
		Embedder: failingEmbedder{failOn: "beta"},
	})

	// Files are processed in sorted order, so a.txt is inserted before
	// b.txt fails.
	src := writeSourceDir(t, map[string]string{
		"a.txt": "alpha content",
		"b.txt": "beta content",
	})
	added, err := mgr.BuildOrUpdate(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, store.passages, 1)
	assert.Equal(t, uint64(1), mgr.Generation(),
		"passages landed in the collection, so cached chat engines must see a new generation")
}

func TestBuildOrUpdateEmptyDocumentSkipped(t *testing.T) {
	store := &fakeStore{}
	mgr := newTestManager(store, filepath.Join(t.TempDir(), "vector_store"))

	src := writeSourceDir(t, map[string]string{"blank.txt": "   \n  "})
	added, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Empty(t, store.passages)
	assert.Equal(t, uint64(0), mgr.Generation())
}

func TestBuildOrUpdateMetadataFailureAssumesEmpty(t *testing.T) {
	store := &fakeStore{filenamesErr: assert.AnError}
	storePath := filepath.Join(t.TempDir(), "vector_store")
	markExisting(t, storePath)
	mgr := newTestManager(store, storePath)

	src := writeSourceDir(t, map[string]string{"a.txt": "alpha content"})
	added, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, added, "unreadable metadata must degrade to re-indexing, not to an error")
}

func TestRetrieveBeforeBuild(t *testing.T) {
	mgr := newTestManager(&fakeStore{}, filepath.Join(t.TempDir(), "vector_store"))
	_, err := mgr.Retrieve(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestRetrieveAfterBuild(t *testing.T) {
	store := &fakeStore{}
	mgr := newTestManager(store, filepath.Join(t.TempDir(), "vector_store"))
	src := writeSourceDir(t, map[string]string{"a.txt": "alpha content"})
	_, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)

	results, err := mgr.Retrieve(context.Background(), "alpha", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Passage.FileName())
}

func TestDrop(t *testing.T) {
	store := &fakeStore{}
	mgr := newTestManager(store, filepath.Join(t.TempDir(), "vector_store"))
	src := writeSourceDir(t, map[string]string{"a.txt": "alpha content"})
	_, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	gen := mgr.Generation()

	require.NoError(t, mgr.Drop(context.Background()))
	assert.True(t, store.dropped)
	assert.Equal(t, gen+1, mgr.Generation())

	_, err = mgr.Retrieve(context.Background(), "alpha", 3)
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestDropFailureLeavesStateUnchanged(t *testing.T) {
	store := &fakeStore{dropErr: assert.AnError}
	mgr := newTestManager(store, filepath.Join(t.TempDir(), "vector_store"))
	src := writeSourceDir(t, map[string]string{"a.txt": "alpha content"})
	_, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	gen := mgr.Generation()

	err = mgr.Drop(context.Background())
	require.Error(t, err)
	assert.Equal(t, gen, mgr.Generation())

	results, err := mgr.Retrieve(context.Background(), "alpha", 3)
	require.NoError(t, err)
	assert.Len(t, results, 1, "a failed drop must leave the index usable")
}

func TestExistingFilenamesSorted(t *testing.T) {
	store := &fakeStore{}
	mgr := newTestManager(store, filepath.Join(t.TempDir(), "vector_store"))
	src := writeSourceDir(t, map[string]string{
		"zeta.txt":  "z",
		"alpha.txt": "a",
		"mid.txt":   "m",
	})
	_, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha.txt", "mid.txt", "zeta.txt"},
		mgr.ExistingFilenames(context.Background()))
}

func TestOnIndexedHook(t *testing.T) {
	store := &fakeStore{}
	var indexed []string
	mgr := NewManager(Options{
		Log:        zap.NewNop(),
		StorePath:  filepath.Join(t.TempDir(), "vector_store"),
		Collection: "test",
		OpenStore: func(ctx context.Context) (vectorstore.Store, error) {
			return store, nil
		},
		Loader:   fakeLoader{},
		Chunker:  fakeChunker{},
		Embedder: fakeEmbedder{},
		OnIndexed: func(file string, passages []domain.Passage) {
			indexed = append(indexed, file)
		},
	})

	src := writeSourceDir(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	_, err := mgr.BuildOrUpdate(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, indexed)
}

func TestStageUploads(t *testing.T) {
	dir, err := StageUploads([]domain.Document{
		{Name: "a.pdf", Size: 5, Content: []byte("hello")},
		{Name: "b.pdf", Size: 5, Content: []byte("world")},
	})
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	content, err := os.ReadFile(filepath.Join(dir, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}
