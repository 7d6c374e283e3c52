package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"askboyfriend_go_backend/internal/database"
	"askboyfriend_go_backend/internal/services"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// Batch generator for SEO web stories. Run ad hoc or from a scheduler:
//
//	go run ./cmd/stories -categories Fun,Deep
func main() {
	categoriesFlag := flag.String("categories", "", "comma-separated categories (default: all)")
	outputDir := flag.String("out", "public", "output directory for story pages and sitemap")
	concurrency := flag.Int("concurrency", 3, "stories generated in parallel")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	genaiAPIKey := os.Getenv("GOOGLE_AI_STUDIO_API_KEY")
	if genaiAPIKey == "" {
		log.Fatal("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
	}

	baseURL := os.Getenv("SITE_BASE_URL")
	if baseURL == "" {
		baseURL = "https://questiontoaskyourboyfriend.com"
	}

	ctx := context.Background()

	database.InitDB()

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(genaiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}
	defer genaiClient.Close()

	categories := services.QuestionCategories
	if *categoriesFlag != "" {
		categories = strings.Split(*categoriesFlag, ",")
		for _, category := range categories {
			if !services.IsValidCategory(category) {
				log.Fatalf("Unknown category %q", category)
			}
		}
	}

	storyGenerator := services.NewGenAIStoryGenerator(genaiClient, "gemini-1.5-flash")
	storyStore := services.NewStoryServiceDB(database.DB)
	storyService := services.NewStoryService(storyGenerator, storyStore, *outputDir, baseURL)

	if err := storyService.PublishAll(ctx, categories, *concurrency); err != nil {
		log.Fatalf("Story generation failed: %v", err)
	}

	log.Printf("Published %d web stories under %s/stories", len(categories), *outputDir)
}
