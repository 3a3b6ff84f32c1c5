package annotationsvc

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
)

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	schema *genai.Schema
	prompt string
}

func (g *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, p := range parts {
		if txt, ok := p.(genai.Text); ok {
			g.prompt += string(txt)
		}
	}
	return g.resp, g.err
}

func newFakeAnnotator(gen *fakeGenerator) *GeminiAnnotator {
	return &GeminiAnnotator{
		newGenerator: func(schema *genai.Schema) generator {
			gen.schema = schema
			return gen
		},
	}
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

var (
	roster = []group.RosterEntry{
		{ID: "s1", Skills: []string{"go"}, CGPA: 3.9},
		{ID: "s2", Skills: []string{}, CGPA: 2.1},
	}
	proposals = []group.Proposal{
		{Name: "Team 1", MemberIDs: []string{"s1"}},
		{Name: "Team 2", MemberIDs: []string{"s2"}},
	}
)

func TestNewGeminiAnnotator_NotConfigured(t *testing.T) {
	conf := &core.Config{}
	conf.Gemini.APIKey = "   "

	a, err := NewGeminiAnnotator(context.Background(), conf)
	assert.Nil(t, a)
	assert.Equal(t, group.ErrAnnotatorNotConfigured, err)
}

func TestGeminiAnnotator_Annotate(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		genErr  error
		want    map[string]string
		wantErr bool
		wantMsg string
	}{
		{
			name: "plain json",
			resp: textResponse(`{"Team 1": "Strong coders.", "Team 2": "Eager learners."}`),
			want: map[string]string{"Team 1": "Strong coders.", "Team 2": "Eager learners."},
		},
		{
			name: "fenced json",
			resp: textResponse("```json\n{\"Team 1\": \"Strong coders.\"}\n```"),
			want: map[string]string{"Team 1": "Strong coders."},
		},
		{
			name: "split parts",
			resp: textResponse(`{"Team 1": `, `"Strong coders."}`),
			want: map[string]string{"Team 1": "Strong coders."},
		},
		{
			name: "blank and unknown notes dropped",
			resp: textResponse(`{"Team 1": "Strong coders.", "Team 2": "  ", "Team 9": "Ghosts."}`),
			want: map[string]string{"Team 1": "Strong coders."},
		},
		{name: "transport error", genErr: errors.New("quota exceeded"), wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{name: "empty text", resp: textResponse("  "), wantErr: true},
		{name: "malformed json", resp: textResponse("Team 1 is great"), wantErr: true},
		{name: "empty object", resp: textResponse(`{}`), wantErr: true, wantMsg: "empty response from AI model"},
		{name: "null", resp: textResponse(`null`), wantErr: true, wantMsg: "empty response from AI model"},
		{name: "unknown groups only", resp: textResponse(`{"Team 9": "x"}`), wantErr: true, wantMsg: "empty response from AI model"},
		{name: "blank notes only", resp: textResponse(`{"Team 1": "", "Team 2": " "}`), wantErr: true, wantMsg: "empty response from AI model"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{resp: tc.resp, err: tc.genErr}
			notes, err := newFakeAnnotator(gen).Annotate(context.Background(), roster, proposals)

			if tc.wantErr {
				assert.Nil(t, notes)
				assert.Equal(t, group.ErrAnnotationFailed, errors.Cause(err))
				if tc.wantMsg != "" {
					assert.Equal(t, tc.wantMsg+": "+group.ErrAnnotationFailed.Error(), err.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, notes)
		})
	}
}

func TestGeminiAnnotator_Request(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"Team 1": "Strong coders."}`)}
	_, err := newFakeAnnotator(gen).Annotate(context.Background(), roster, proposals)
	require.NoError(t, err)

	assert.Contains(t, gen.prompt, `Students: [{"id":"s1","skills":["go"],"cgpa":3.9},{"id":"s2","skills":[],"cgpa":2.1}]`)
	assert.Contains(t, gen.prompt, `Proposed Groups: [{"name":"Team 1","memberIds":["s1"]},{"name":"Team 2","memberIds":["s2"]}]`)

	require.NotNil(t, gen.schema)
	assert.Equal(t, genai.TypeObject, gen.schema.Type)
	assert.Len(t, gen.schema.Properties, 2)
	for _, name := range []string{"Team 1", "Team 2"} {
		if assert.Contains(t, gen.schema.Properties, name) {
			assert.Equal(t, genai.TypeString, gen.schema.Properties[name].Type)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":"b"}`, `{"a":"b"}`},
		{"```json\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"```\n{\"a\":\"b\"}```", `{"a":"b"}`},
		{"```json{\"a\":\"b\"}```", `{"a":"b"}`},
		{"  \n", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, stripFences(tc.in))
	}
}
