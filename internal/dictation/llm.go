package dictation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/heartline-cc/HeartLine/pkg/llm"
)

// defaultExtractTimeout bounds the completion call when no timeout is
// configured; past it the utterance falls through to the heuristic extractor.
const defaultExtractTimeout = 10 * time.Second

const extractSystemPrompt = `You extract grade records from a teacher's spoken sentence.
Respond with ONLY a JSON object, no prose, in exactly this shape:
{"classroom":"<group name or empty>","entries":[{"student":"<name>","subject":"<subject>","score":<number>}],"missing":["<names mentioned without a score>"]}
Rules: never invent students or scores; a name whose score you cannot find goes in "missing"; scores are plain numbers.`

// Completer is the completion capability the extractor needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// LLMExtractor asks the completion service for a structured parse. Any
// failure (timeout, API error, malformed output) degrades to the empty
// result so the chain falls through.
type LLMExtractor struct {
	completer Completer
	timeout   time.Duration
}

func NewLLMExtractor(completer Completer, timeout time.Duration) *LLMExtractor {
	if timeout <= 0 {
		timeout = defaultExtractTimeout
	}
	return &LLMExtractor{completer: completer, timeout: timeout}
}

func (e *LLMExtractor) Name() string { return "llm" }

func (e *LLMExtractor) Extract(ctx context.Context, utterance string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: extractSystemPrompt},
		{Role: llm.RoleUser, Content: utterance},
	})
	if err != nil {
		return Result{}, err
	}
	return parseExtraction(raw)
}

// rawResult tolerates scores arriving as numbers or quoted numbers.
type rawResult struct {
	Classroom string `json:"classroom"`
	Entries   []struct {
		Student string    `json:"student"`
		Subject string    `json:"subject"`
		Score   flexScore `json:"score"`
	} `json:"entries"`
	Missing []string `json:"missing"`
}

type flexScore struct {
	value float64
	ok    bool
}

func (f *flexScore) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable score is not fatal; the entry lands in "missing".
		return nil
	}
	f.value = v
	f.ok = true
	return nil
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// parseExtraction parses model output permissively: markdown fences and prose
// around the object are dropped, smart quotes normalized, trailing commas
// removed. Anything still unparseable is an error (treated as empty upstream).
func parseExtraction(raw string) (Result, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in extraction output")
	}
	cleaned = cleaned[start : end+1]
	cleaned = strings.NewReplacer("“", `"`, "”", `"`, "‘", `'`, "’", `'`).Replace(cleaned)
	cleaned = trailingCommaRe.ReplaceAllString(cleaned, "$1")

	var parsed rawResult
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Result{}, fmt.Errorf("parse extraction output: %w", err)
	}

	res := Result{Classroom: strings.TrimSpace(parsed.Classroom), Missing: parsed.Missing}
	for _, e := range parsed.Entries {
		student := strings.TrimSpace(e.Student)
		if student == "" {
			continue
		}
		if !e.Score.ok {
			res.Missing = append(res.Missing, student)
			continue
		}
		res.Entries = append(res.Entries, Entry{
			Student: student,
			Subject: strings.TrimSpace(e.Subject),
			Score:   e.Score.value,
		})
	}
	return res, nil
}
