package dictation

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// HeuristicExtractor parses dictation with regular expressions only. It makes
// no external calls and always terminates, so it is the safety net of the
// chain. Understood shapes:
//
//	"Alice: Math 92, Biology 88"
//	"class 3B. Alice: Math 92; Bob: History 75"
//	"Bob math 80.5"
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

func (e *HeuristicExtractor) Name() string { return "heuristic" }

var (
	classroomRe = regexp.MustCompile(`(?i)\b(?:class(?:room)?|group)\s+([\p{L}\d][\p{L}\d-]*)`)
	// "Subject 92" pairs inside one student's block
	pairRe = regexp.MustCompile(`([\p{L}][\p{L} ]*?)\s+(\d+(?:\.\d+)?)\b`)
	// "Name:" introduces a student block; full-width colon for zh transcripts
	blockRe = regexp.MustCompile(`([\p{L}][\p{L} .'-]*?)\s*[:：]`)
)

func (e *HeuristicExtractor) Extract(_ context.Context, utterance string) (Result, error) {
	var res Result

	if m := classroomRe.FindStringSubmatch(utterance); m != nil {
		res.Classroom = m[1]
		utterance = strings.Replace(utterance, m[0], "", 1)
	}

	locs := blockRe.FindAllStringSubmatchIndex(utterance, -1)
	if len(locs) == 0 {
		// No "Name:" marker; try "Name Subject Score" as a single block.
		res = e.extractBare(utterance, res)
		return res, nil
	}

	for i, loc := range locs {
		name := strings.TrimSpace(utterance[loc[2]:loc[3]])
		end := len(utterance)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := utterance[loc[1]:end]

		pairs := pairRe.FindAllStringSubmatch(body, -1)
		if len(pairs) == 0 {
			res.Missing = append(res.Missing, name)
			continue
		}
		for _, p := range pairs {
			score, err := strconv.ParseFloat(p[2], 64)
			if err != nil {
				res.Missing = append(res.Missing, name)
				continue
			}
			res.Entries = append(res.Entries, Entry{
				Student: name,
				Subject: strings.TrimSpace(p[1]),
				Score:   score,
			})
		}
	}
	return res, nil
}

var bareRe = regexp.MustCompile(`^\s*([\p{L}][\p{L}.'-]*)\s+([\p{L}][\p{L} ]*?)\s+(\d+(?:\.\d+)?)\s*[.。]?\s*$`)

func (e *HeuristicExtractor) extractBare(utterance string, res Result) Result {
	m := bareRe.FindStringSubmatch(utterance)
	if m == nil {
		return res
	}
	score, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return res
	}
	res.Entries = append(res.Entries, Entry{
		Student: m[1],
		Subject: strings.TrimSpace(m[2]),
		Score:   score,
	})
	return res
}
