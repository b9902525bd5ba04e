package dictation

import (
	"context"
	"testing"
	"time"

	"github.com/heartline-cc/HeartLine/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowCompleter blocks until the per-call context expires.
type slowCompleter struct{}

func (slowCompleter) Complete(ctx context.Context, _ []llm.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestLLMExtractorConfiguredTimeout(t *testing.T) {
	ex := NewLLMExtractor(slowCompleter{}, 10*time.Millisecond)

	start := time.Now()
	_, err := ex.Extract(context.Background(), "Alice: Math 92")
	assert.Error(t, err)
	// The configured timeout, not the 10s default, bounds the call
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Result
		wantErr bool
	}{
		{
			name: "clean object",
			raw:  `{"classroom":"3B","entries":[{"student":"Alice","subject":"Math","score":92}],"missing":[]}`,
			want: Result{
				Classroom: "3B",
				Entries:   []Entry{{Student: "Alice", Subject: "Math", Score: 92}},
				Missing:   []string{},
			},
		},
		{
			name: "markdown fenced",
			raw: "```json\n" +
				`{"classroom":"","entries":[{"student":"Bob","subject":"History","score":75}],"missing":[]}` +
				"\n```",
			want: Result{
				Entries: []Entry{{Student: "Bob", Subject: "History", Score: 75}},
				Missing: []string{},
			},
		},
		{
			name: "prose around the object",
			raw:  `Sure! Here is the result: {"classroom":"","entries":[{"student":"Bob","subject":"Math","score":80.5}],"missing":[]} Let me know if you need more.`,
			want: Result{
				Entries: []Entry{{Student: "Bob", Subject: "Math", Score: 80.5}},
				Missing: []string{},
			},
		},
		{
			name: "trailing comma and quoted score",
			raw:  `{"classroom":"3B","entries":[{"student":"Alice","subject":"Math","score":"92"},],"missing":[],}`,
			want: Result{
				Classroom: "3B",
				Entries:   []Entry{{Student: "Alice", Subject: "Math", Score: 92}},
				Missing:   []string{},
			},
		},
		{
			name: "unparseable score lands in missing",
			raw:  `{"classroom":"","entries":[{"student":"Alice","subject":"Math","score":"ninety two"}],"missing":[]}`,
			want: Result{
				Missing: []string{"Alice"},
			},
		},
		{
			name: "nameless entry dropped",
			raw:  `{"classroom":"","entries":[{"student":"","subject":"Math","score":50}],"missing":[]}`,
			want: Result{Missing: []string{}},
		},
		{
			name:    "no json at all",
			raw:     "I could not find any grades in that.",
			wantErr: true,
		},
		{
			name:    "broken json",
			raw:     `{"classroom": oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExtraction(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Classroom, got.Classroom)
			assert.Equal(t, tt.want.Entries, got.Entries)
			assert.Equal(t, tt.want.Missing, got.Missing)
		})
	}
}
