package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// QuestionCategories is the set of conversation-topic categories the app
// offers. Requests with any other category are rejected before generation.
var QuestionCategories = []string{"Fun", "Deep", "Spicy", "Cute", "Future", "Past", "Dreams", "Goals"}

func IsValidCategory(category string) bool {
	for _, c := range QuestionCategories {
		if c == category {
			return true
		}
	}
	return false
}

const questionSystemPrompt = "You are a relationship expert helping couples deepen their connection through meaningful conversations."

// QuestionService generates conversation-starter questions via the GenAI API.
type QuestionService struct {
	client    *genai.Client
	modelName string
}

func NewQuestionService(client *genai.Client, modelName string) *QuestionService {
	return &QuestionService{
		client:    client,
		modelName: modelName,
	}
}

// GenerateQuestion asks the model for one question in the given category.
// relationshipContext is optional free text about the relationship.
func (qs *QuestionService) GenerateQuestion(ctx context.Context, category, relationshipContext string) (string, error) {
	model := qs.client.GenerativeModel(qs.modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(questionSystemPrompt))
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(150)

	contextPrompt := ""
	if relationshipContext != "" {
		contextPrompt = fmt.Sprintf("Consider this context about the relationship: %q. ", relationshipContext)
	}

	prompt := fmt.Sprintf(`%sGenerate a thoughtful and engaging question to ask my boyfriend in the category of %q.
      The question should be personal, respectful, and encourage meaningful conversation.`, contextPrompt, category)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyGeneration
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", ErrEmptyGeneration
	}

	return strings.TrimSpace(string(text)), nil
}
