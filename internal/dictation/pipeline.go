package dictation

import (
	"context"
	"fmt"
	"time"

	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/heartline-cc/HeartLine/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pipeline runs an ordered extractor chain, first non-empty result wins.
// It never returns an error to the call flow; every failure mode degrades to
// the empty result.
type Pipeline struct {
	extractors []Extractor
}

// NewPipeline builds the standard chain: LLM primary, heuristic fallback.
// A nil completer (no API key configured) leaves only the heuristic.
func NewPipeline(completer Completer, timeout time.Duration) *Pipeline {
	var chain []Extractor
	if completer != nil {
		chain = append(chain, NewLLMExtractor(completer, timeout))
	}
	chain = append(chain, NewHeuristicExtractor())
	return &Pipeline{extractors: chain}
}

// NewPipelineWith builds a chain from explicit extractors, for tests.
func NewPipelineWith(extractors ...Extractor) *Pipeline {
	return &Pipeline{extractors: extractors}
}

// Extract runs the chain over the utterance.
func (p *Pipeline) Extract(ctx context.Context, utterance string) Result {
	for i, ex := range p.extractors {
		res, err := ex.Extract(ctx, utterance)
		if err != nil {
			logger.Warn("extractor failed, falling through",
				zap.String("extractor", ex.Name()), zap.Error(err))
			continue
		}
		if res.Empty() {
			continue
		}
		if i > 0 {
			metrics.ExtractionFallbacks.Inc()
		}
		return res
	}
	return Result{}
}

// Commit persists the accepted entries for the dictating teacher and returns
// how many grades were saved. Entries without a valid score never reach this
// point (they live in Result.Missing). The whole batch commits or none of it.
func (p *Pipeline) Commit(db *gorm.DB, teacherID uint, res Result) (int, error) {
	if len(res.Entries) == 0 {
		return 0, nil
	}

	saved := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var classroomID *uint
		if res.Classroom != "" {
			room, err := models.EnsureClassroom(tx, teacherID, res.Classroom)
			if err != nil {
				return err
			}
			classroomID = &room.ID
		}
		for _, entry := range res.Entries {
			if entry.Student == "" {
				continue
			}
			student, err := models.EnsureStudent(tx, classroomID, entry.Student)
			if err != nil {
				return err
			}
			if err := models.CreateGrade(tx, student.ID, entry.Subject, entry.Score); err != nil {
				return err
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// Confirmation builds the spoken reply for a dictation turn.
func Confirmation(saved int, res Result) string {
	switch {
	case saved > 0 && len(res.Missing) > 0:
		return fmt.Sprintf("Saved %d grade(s). I did not catch a score for %s, please repeat it.",
			saved, joinNames(res.Missing))
	case saved > 0:
		return fmt.Sprintf("Saved %d grade(s).", saved)
	case len(res.Missing) > 0:
		return fmt.Sprintf("I heard %s but no score. Please repeat the grade, for example: Alice, Math, ninety two.",
			joinNames(res.Missing))
	default:
		return ""
	}
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		out := names[0]
		for _, n := range names[1 : len(names)-1] {
			out += ", " + n
		}
		return out + " and " + names[len(names)-1]
	}
}
