package domain

// Document represents a single uploaded source file. The (Name, Size) pair is
// its identity key; Content is transient and discarded after extraction.
type Document struct {
	Name    string
	Size    int64
	Path    string
	Content []byte
}

// Identity returns the (name, size) identity key of the document.
func (d Document) Identity() DocumentID {
	return DocumentID{Name: d.Name, Size: d.Size}
}

// DocumentID identifies a document across upload batches.
type DocumentID struct {
	Name string
	Size int64
}

// Passage is a chunk of extracted document text, the atomic unit of
// retrieval. Metadata always carries "file_name" and "page_label".
type Passage struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// FileName returns the source filename recorded in the passage metadata,
// or the empty string if absent.
func (p Passage) FileName() string { return p.Metadata[MetaFileName] }

// Metadata keys attached to every passage.
const (
	MetaFileName  = "file_name"
	MetaPageLabel = "page_label"
)

// RetrievedPassage is a passage returned by a similarity search together
// with its relevance score. Scored reports whether the underlying store
// attached a score at all.
type RetrievedPassage struct {
	Passage Passage
	Score   float64
	Scored  bool
}
