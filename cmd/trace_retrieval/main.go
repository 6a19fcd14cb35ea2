package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"ai-quiz-generator-be/internal/config"
	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/pkg/embedding"
	"ai-quiz-generator-be/pkg/retriever"
	"ai-quiz-generator-be/pkg/retriever/dense"
	"ai-quiz-generator-be/pkg/utils"

	"github.com/fatih/color"
)

// Prints the lexical, dense and fused rankings for one query over a text file.
//
//	go run ./cmd/trace_retrieval -file lesson.txt -query "Create 5 questions about loops"
func main() {
	file := flag.String("file", "", "text file with the source material")
	query := flag.String("query", "", "retrieval query, usually the quiz prompt")
	topK := flag.Int("k", 5, "candidates per ranking")
	persist := flag.Bool("persist", false, "reuse the configured vector store path instead of an in-memory one")
	flag.Parse()

	if *file == "" || *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	raw, err := os.ReadFile(*file)
	if err != nil {
		color.Red("Failed to read %s: %v", *file, err)
		os.Exit(1)
	}

	chunks := utils.SplitText(string(raw), cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	color.Cyan("Loaded %d passages from %s (chunk %d, overlap %d)", len(chunks), *file, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

	provider, err := embedding.NewProvider(embedding.Config{
		Provider:      cfg.Ai.EmbeddingProvider,
		Model:         cfg.Ai.EmbeddingModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		OpenAIKey:     cfg.Keys.OpenAI,
		GeminiKey:     cfg.Keys.GoogleGemini,
	})
	if err != nil {
		color.Red("Embedding provider: %v", err)
		os.Exit(1)
	}

	storePath := ""
	if *persist {
		storePath = cfg.Retrieval.VectorStorePath
	}
	store, err := dense.NewChromemStore(storePath, true)
	if err != nil {
		color.Red("Vector store: %v", err)
		os.Exit(1)
	}

	log := logger.NewNopLogger()
	factory := retriever.NewFactory(
		dense.NewRetriever(provider, store, log),
		retriever.Config{RRFK: cfg.Retrieval.RRFK, CandidatesN: cfg.Retrieval.CandidatesN},
		log,
	)
	hybrid := factory.Create(retriever.NewPassages(chunks))

	lexicalRank, denseRank, fused, err := hybrid.Rankings(context.Background(), *query, *topK)
	if err != nil {
		color.Red("Retrieval failed: %v", err)
		os.Exit(1)
	}

	color.Yellow("\n[LEXICAL] BM25")
	for i, c := range lexicalRank {
		printRow(i, c.PassageID, c.Score, hybrid.Text(c.PassageID))
	}

	color.Yellow("\n[DENSE] %s", provider.ModelName())
	for i, c := range denseRank {
		printRow(i, c.PassageID, c.Score, hybrid.Text(c.PassageID))
	}

	color.Yellow("\n[FUSED] RRF k=%d", cfg.Retrieval.RRFK)
	for i, f := range fused {
		printRow(i, f.PassageID, f.Score, hybrid.Text(f.PassageID))
	}
}

func printRow(rank, id int, score float64, text string) {
	preview := strings.Join(strings.Fields(text), " ")
	if r := []rune(preview); len(r) > 100 {
		preview = string(r[:100]) + "..."
	}
	color.Green("%2d. passage #%d  score=%.4f", rank+1, id, score)
	fmt.Printf("    %s\n", preview)
}
