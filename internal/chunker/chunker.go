// Package chunker splits document text into overlapping chunks using a
// separator-priority strategy: paragraph breaks first, then line breaks,
// then spaces, with a hard character cut as the last resort.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators in priority order. The empty separator is the hard
// character cut and always applies.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text into overlapping chunks. Splitting is
// deterministic: identical text and configuration always yield the
// identical chunk sequence.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for new content in every chunk
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured chunk size in characters.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap in characters.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split chunks the document text. Empty or whitespace-only text yields
// no chunks. Every chunk is stamped with its index and the final total.
func (s *Splitter) Split(doc domain.Document, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.splitText(text, separators)

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			Text:         piece,
			Index:        i,
			Total:        len(pieces),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
		}
	}

	return chunks
}

// splitText recursively splits text by the highest-priority separator
// present, merging the resulting splits back into chunks of at most
// chunkSize characters with up to overlap characters carried over.
func (s *Splitter) splitText(text string, seps []string) []string {
	// Pick the first separator that occurs in the text. The empty
	// separator always matches and terminates the recursion.
	sep := seps[len(seps)-1]
	var rest []string
	for i, cand := range seps {
		if cand == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}

	// strings.Split with an empty separator yields individual runes.
	splits := strings.Split(text, sep)

	var final []string
	var good []string

	for _, piece := range splits {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}

		// Piece too large to merge as-is: flush what fits, then recurse
		// into the oversized piece with the lower-priority separators.
		if len(good) > 0 {
			final = append(final, s.mergeSplits(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, rest)...)
		}
	}

	if len(good) > 0 {
		final = append(final, s.mergeSplits(good, sep)...)
	}

	return final
}

// mergeSplits greedily packs separator-delimited splits into chunks of
// at most chunkSize characters, carrying up to overlap characters of
// tail into the next chunk. Overlap is advisory: it degrades near
// separator boundaries and never exceeds the chunk size.
func (s *Splitter) mergeSplits(splits []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)

	var docs []string
	var current []string
	total := 0

	for _, split := range splits {
		splitLen := utf8.RuneCountInString(split)

		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}

		if total+splitLen+extra > s.chunkSize && len(current) > 0 {
			if doc := joinSplits(current, sep); doc != "" {
				docs = append(docs, doc)
			}
			// Drop leading splits until the carried tail fits in the
			// overlap budget and leaves room for the incoming split.
			for total > s.overlap || (total+splitLen+sepLen > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}

		current = append(current, split)
		total += splitLen
		if len(current) > 1 {
			total += sepLen
		}
	}

	if doc := joinSplits(current, sep); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

// joinSplits joins splits with the separator and trims surrounding
// whitespace; a whitespace-only result collapses to the empty string.
func joinSplits(splits []string, sep string) string {
	return strings.TrimSpace(strings.Join(splits, sep))
}
