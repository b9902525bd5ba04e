// Package dictation turns a teacher's free-speech utterance into persisted
// (student, subject, score) records. A probabilistic extractor runs first;
// a deterministic regex extractor answers when it comes back empty.
package dictation

import "context"

// Entry is one parsed (student, subject, score) tuple.
type Entry struct {
	Student string
	Subject string
	Score   float64
}

// Result is the normalized output shape shared by every extractor.
type Result struct {
	// Classroom is the group name when the teacher mentioned one.
	Classroom string
	// Entries hold tuples with a valid numeric score; only these are saved.
	Entries []Entry
	// Missing lists student names mentioned without a parseable score.
	Missing []string
}

// Empty reports whether the extractor found nothing actionable.
func (r Result) Empty() bool {
	return len(r.Entries) == 0 && len(r.Missing) == 0
}

// Extractor is one strategy in the chain.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, utterance string) (Result, error)
}
