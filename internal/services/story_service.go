package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"askboyfriend_go_backend/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StoryContent is the structured story the model returns.
type StoryContent struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Pages       []StoryPage `json:"pages"`
}

type StoryPage struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

const storySystemPrompt = "You are an expert in relationship advice and creating engaging web stories."

// GenAIStoryGenerator implements StoryContentGenerator via the GenAI API with
// JSON response formatting.
type GenAIStoryGenerator struct {
	client    *genai.Client
	modelName string
}

func NewGenAIStoryGenerator(client *genai.Client, modelName string) *GenAIStoryGenerator {
	return &GenAIStoryGenerator{client: client, modelName: modelName}
}

func (g *GenAIStoryGenerator) GenerateStoryContent(ctx context.Context, category string) (*StoryContent, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(storySystemPrompt))
	model.SetTemperature(0.7)
	model.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(`Create a web story about questions to ask your boyfriend in the category: %s.
          Include:
          - A catchy title
          - 5-7 engaging questions with brief explanations
          - Why these questions are important
          Format as JSON with title, description, and pages array where each page has title and content.`, category)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("story generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyGeneration
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, ErrEmptyGeneration
	}

	var content StoryContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("failed to parse story JSON: %w", err)
	}
	if content.Title == "" || len(content.Pages) == 0 {
		return nil, fmt.Errorf("story content incomplete: missing title or pages")
	}
	return &content, nil
}

// StoryService renders AMP web story pages for SEO and records their metadata.
type StoryService struct {
	generator StoryContentGenerator
	store     WebStoryStore
	outputDir string
	baseURL   string
}

func NewStoryService(generator StoryContentGenerator, store WebStoryStore, outputDir, baseURL string) *StoryService {
	return &StoryService{
		generator: generator,
		store:     store,
		outputDir: outputDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Slugify builds the story slug from the publish date and category.
func Slugify(category string, publishedAt time.Time) string {
	c := strings.ToLower(strings.TrimSpace(category))
	c = strings.Join(strings.Fields(c), "-")
	return fmt.Sprintf("%s-%s", publishedAt.UTC().Format("2006-01-02"), c)
}

// PublishStory generates one story for the category, writes its AMP page under
// outputDir/stories/<slug>/index.html and records a web_stories row.
func (ss *StoryService) PublishStory(ctx context.Context, category string) (string, error) {
	content, err := ss.generator.GenerateStoryContent(ctx, category)
	if err != nil {
		return "", err
	}

	publishedAt := time.Now()
	slug := Slugify(category, publishedAt)
	storyDir := filepath.Join(ss.outputDir, "stories", slug)
	if err := os.MkdirAll(storyDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create story directory: %w", err)
	}

	html, err := ss.RenderAmpStory(slug, content)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(storyDir, "index.html"), []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write story page: %w", err)
	}

	story := &models.WebStory{
		Title:       content.Title,
		Description: content.Description,
		Category:    category,
		Slug:        slug,
		PublishedAt: publishedAt,
	}
	if err := ss.store.SaveStory(ctx, story); err != nil {
		return "", fmt.Errorf("failed to save story metadata: %w", err)
	}

	if err := ss.WriteSitemap(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to regenerate sitemap")
	}

	log.Info().Str("slug", slug).Str("category", category).Msg("Web story published")
	return slug, nil
}

// PublishAll generates stories for every category, a few at a time.
func (ss *StoryService) PublishAll(ctx context.Context, categories []string, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, category := range categories {
		category := category
		g.Go(func() error {
			if _, err := ss.PublishStory(ctx, category); err != nil {
				return fmt.Errorf("category %s: %w", category, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// WriteSitemap rewrites sitemap.xml from the stored story list.
func (ss *StoryService) WriteSitemap(ctx context.Context) error {
	stories, err := ss.store.ListStories(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	fmt.Fprintf(&b, "  <url><loc>%s/</loc></url>\n", ss.baseURL)
	for _, story := range stories {
		fmt.Fprintf(&b, "  <url><loc>%s/stories/%s</loc><lastmod>%s</lastmod></url>\n",
			ss.baseURL, story.Slug, story.PublishedAt.UTC().Format("2006-01-02"))
	}
	b.WriteString("</urlset>\n")

	return os.WriteFile(filepath.Join(ss.outputDir, "sitemap.xml"), []byte(b.String()), 0o644)
}

var ampStoryTemplate = template.Must(template.New("amp-story").Parse(`<!doctype html>
<html amp>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <link rel="canonical" href="{{.CanonicalURL}}">
  <meta name="description" content="{{.Description}}">
  <meta name="viewport" content="width=device-width,minimum-scale=1,initial-scale=1">
  <style amp-boilerplate>body{-webkit-animation:-amp-start 8s steps(1,end) 0s 1 normal both;-moz-animation:-amp-start 8s steps(1,end) 0s 1 normal both;-ms-animation:-amp-start 8s steps(1,end) 0s 1 normal both;animation:-amp-start 8s steps(1,end) 0s 1 normal both}@keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}</style>
  <noscript><style amp-boilerplate>body{-webkit-animation:none;-moz-animation:none;-ms-animation:none;animation:none}</style></noscript>
  <style amp-custom>
    amp-story-page { background: linear-gradient(160deg, #fdf2f8, #fbcfe8); }
    h1 { color: #831843; font-family: sans-serif; }
    p { color: #500724; font-family: sans-serif; font-size: 1.1em; }
  </style>
  <script async src="https://cdn.ampproject.org/v0.js"></script>
  <script async custom-element="amp-story" src="https://cdn.ampproject.org/v0/amp-story-1.0.js"></script>
</head>
<body>
  <amp-story
    standalone
    title="{{.Title}}"
    publisher="Questions to Ask Your Boyfriend"
    publisher-logo-src="{{.BaseURL}}/android-chrome-192x192.png"
    poster-portrait-src="{{.BaseURL}}/poster-portrait.png">
{{range $i, $page := .Pages}}
    <amp-story-page id="page{{$i}}">
      <amp-story-grid-layer template="vertical">
        <h1>{{$page.Title}}</h1>
        <p>{{$page.Content}}</p>
      </amp-story-grid-layer>
    </amp-story-page>
{{end}}
  </amp-story>
</body>
</html>
`))

type ampStoryData struct {
	Title        string
	Description  string
	CanonicalURL string
	BaseURL      string
	Pages        []StoryPage
}

// RenderAmpStory renders the AMP page markup for a story.
func (ss *StoryService) RenderAmpStory(slug string, content *StoryContent) (string, error) {
	var b strings.Builder
	err := ampStoryTemplate.Execute(&b, ampStoryData{
		Title:        content.Title,
		Description:  content.Description,
		CanonicalURL: fmt.Sprintf("%s/stories/%s", ss.baseURL, slug),
		BaseURL:      ss.baseURL,
		Pages:        content.Pages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render story template: %w", err)
	}
	return b.String(), nil
}
