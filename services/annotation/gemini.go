package annotationsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
)

const promptTmpl = `I have formed student groups based on CGPA balance.
Please review these groups and provide a short summary of the "vibe" or "skill balance" for each group.

Students: %s
Proposed Groups: %s

Return a JSON object where the key is the group name (e.g. "Team 1", "Team 2") and the value is a one-sentence "Smart Analysis" of why this group works well or what their collective strength is based on their skills.`

type (
	generator interface {
		GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	}

	// GeminiAnnotator annotates groups with the Gemini API.
	GeminiAnnotator struct {
		client       *genai.Client
		newGenerator func(schema *genai.Schema) generator
	}
)

var _ group.Annotator = (*GeminiAnnotator)(nil) // interface compliance check

// NewGeminiAnnotator returns group.ErrAnnotatorNotConfigured when no API key is set.
func NewGeminiAnnotator(ctx context.Context, conf *core.Config) (*GeminiAnnotator, error) {
	if !conf.Gemini.Configured() {
		return nil, group.ErrAnnotatorNotConfigured
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(conf.Gemini.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "creating Gemini client")
	}

	modelName := conf.Gemini.Model
	return &GeminiAnnotator{
		client: client,
		newGenerator: func(schema *genai.Schema) generator {
			model := client.GenerativeModel(modelName)
			model.ResponseMIMEType = "application/json"
			model.ResponseSchema = schema
			return model
		},
	}, nil
}

func (a *GeminiAnnotator) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *GeminiAnnotator) Annotate(ctx context.Context, roster []group.RosterEntry, groups []group.Proposal) (map[string]string, error) {
	prompt, err := buildPrompt(roster, groups)
	if err != nil {
		return nil, err
	}

	resp, err := a.newGenerator(responseSchema(groups)).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, failed(err.Error())
	}
	return parseNotes(resp, groups)
}

func failed(msg string) error {
	return errors.Wrap(group.ErrAnnotationFailed, msg)
}

func buildPrompt(roster []group.RosterEntry, groups []group.Proposal) (string, error) {
	students, err := json.Marshal(roster)
	if err != nil {
		return "", errors.Wrap(err, "marshalling roster")
	}
	proposed, err := json.Marshal(groups)
	if err != nil {
		return "", errors.Wrap(err, "marshalling groups")
	}
	return fmt.Sprintf(promptTmpl, students, proposed), nil
}

func responseSchema(groups []group.Proposal) *genai.Schema {
	props := make(map[string]*genai.Schema, len(groups))
	for _, g := range groups {
		props[g.Name] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: "Analysis for each group name",
		Properties:  props,
	}
}

// parseNotes decodes the JSON object held by the text parts of the first candidate.
// Only non-blank notes of proposed groups are kept; a response without any is empty.
func parseNotes(resp *genai.GenerateContentResponse, groups []group.Proposal) (map[string]string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, failed("empty response from AI model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := stripFences(sb.String())
	if text == "" {
		return nil, failed("empty response from AI model")
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, failed("malformed response from AI model")
	}

	notes := make(map[string]string, len(groups))
	for _, g := range groups {
		if note, ok := decoded[g.Name]; ok && strings.TrimSpace(note) != "" {
			notes[g.Name] = note
		}
	}
	if len(notes) == 0 {
		return nil, failed("empty response from AI model")
	}
	return notes, nil
}

// stripFences removes a surrounding markdown code fence, e.g. ```json ... ```
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
