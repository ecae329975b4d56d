package index

import (
	"ragchat/internal/domain"
)

// DetectNew returns the subset of uploaded whose identity key is absent
// from known. Pure set difference; order of the uploaded batch is kept.
func DetectNew(uploaded []domain.DocumentID, known []domain.DocumentID) []domain.DocumentID {
	if len(uploaded) == 0 {
		return nil
	}
	seen := make(map[domain.DocumentID]struct{}, len(known))
	for _, id := range known {
		seen[id] = struct{}{}
	}
	var fresh []domain.DocumentID
	for _, id := range uploaded {
		if _, ok := seen[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh
}

// NewFilenames returns the filenames in files that are not present in the
// indexed set. This is the authoritative comparison strategy: it survives
// process restarts because indexed comes from collection metadata.
func NewFilenames(files []string, indexed map[string]struct{}) []string {
	var fresh []string
	for _, f := range files {
		if _, ok := indexed[f]; !ok {
			fresh = append(fresh, f)
		}
	}
	return fresh
}

// BatchChanged reports whether the current upload batch differs from the
// previous one. It exists only to skip re-running BuildOrUpdate when an
// unchanged batch is resubmitted; it never replaces the metadata comparison.
func BatchChanged(previous, current []domain.DocumentID) bool {
	if len(previous) != len(current) {
		return true
	}
	for i := range current {
		if previous[i] != current[i] {
			return true
		}
	}
	return false
}
