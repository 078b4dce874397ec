package domain

// Filter is a predicate over a record's non-vector attributes, applied
// during query, lookup and deletion. A filter matches a record when every
// set field matches; the zero Filter matches everything.
type Filter struct {
	// DocumentID matches records of exactly one document.
	DocumentID string

	// DocumentIDs matches records whose document id is in the set.
	// Ignored when DocumentID is set.
	DocumentIDs []string

	// ModuleCode additionally requires an exact module code match.
	ModuleCode string
}

// MatchesDocument reports whether a record with the given document id and
// module code satisfies the filter.
func (f Filter) MatchesDocument(documentID, moduleCode string) bool {
	if f.DocumentID != "" {
		if documentID != f.DocumentID {
			return false
		}
	} else if len(f.DocumentIDs) > 0 {
		found := false
		for _, id := range f.DocumentIDs {
			if id == documentID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.ModuleCode != "" && moduleCode != f.ModuleCode {
		return false
	}

	return true
}

// RetrievalMatch is one ranked result of a similarity query.
// Ephemeral, produced per query.
type RetrievalMatch struct {
	// VectorID is the matched record id.
	VectorID string

	// Similarity is 1 - cosine distance, in [-1, 1].
	Similarity float64

	// Text is the matched chunk content.
	Text string

	// Metadata holds the record's stored attributes.
	Metadata RecordMetadata
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	// DocumentID is the ingested document's id.
	DocumentID string

	// ChunksCreated is the number of chunks stored and verified.
	ChunksCreated int
}

// RetrievalResult is an assembled context window plus coverage stats.
// Stats are computed over the rendered blocks, so matches with empty
// text do not inflate counts.
type RetrievalResult struct {
	// Context is the attributed context string handed to the caller.
	Context string

	// CharCount is the length of Context in characters.
	CharCount int

	// ChunkCount is the number of rendered blocks.
	ChunkCount int

	// DocumentsCovered is the number of distinct documents represented.
	DocumentsCovered int

	// CoveragePct is DocumentsCovered over the number of candidate
	// documents that had at least one match, as a percentage.
	CoveragePct float64

	// UncoveredDocuments lists candidate documents absent from the output.
	UncoveredDocuments []string

	// Matches are the selected matches in output order.
	Matches []RetrievalMatch
}
