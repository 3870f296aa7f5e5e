package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"alfredoptarigan/comparecv/internal/config"
	"alfredoptarigan/comparecv/internal/services"
)

// Usage: go run ./scripts <job_description.txt> <resumes_dir> [report.json]
func main() {
	if len(os.Args) < 3 {
		log.Fatalf("❌ Usage: %s <job_description.txt> <resumes_dir> [report.json]", filepath.Base(os.Args[0]))
	}
	jdPath, dir := os.Args[1], os.Args[2]

	log.Println("🚀 Starting résumé screening...")

	// Load configuration
	cfg := config.Load()

	jobDescription, err := os.ReadFile(jdPath)
	if err != nil {
		log.Fatalf("❌ Failed to read job description: %v", err)
	}

	files, err := collectFiles(dir)
	if err != nil {
		log.Fatalf("❌ Failed to list résumés: %v", err)
	}
	log.Printf("📄 Found %d files in %s", len(files), dir)

	// Initialize services
	geminiService, err := services.NewGeminiService(
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Gemini.EmbedModel,
		cfg.Gemini.Temperature,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	analysisClient, err := services.NewAnalysisClient(geminiService, cfg.Gemini.Timeout)
	if err != nil {
		log.Fatalf("❌ Failed to initialize analysis client: %v", err)
	}

	store := services.NewSessionStore(
		services.NewIngestionService(cfg.Analysis.MaxFiles, cfg.Analysis.MaxFileSize, cfg.Analysis.AllowTextFallback),
		analysisClient,
		services.NewConformanceChecker(services.NewPDFParserService()),
		nil,
		cfg.Analysis.MinJobDescriptionLength,
		0,
	)

	ctx := context.Background()
	run := store.Create("")

	if _, err := store.SetJobDescription(run.ID, string(jobDescription)); err != nil {
		log.Fatalf("❌ Failed to set job description: %v", err)
	}

	_, notices, err := store.AddFiles(ctx, run.ID, files)
	if err != nil {
		log.Fatalf("❌ Failed to ingest files: %v", err)
	}
	for _, n := range notices {
		log.Printf("⚠️  %s", n.Message)
	}

	run, err = store.Analyze(ctx, run.ID, nil)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if run.State != services.StateDisplayed {
		log.Fatalf("❌ Analysis ended in state %s: %s", run.State, run.ErrorMessage)
	}

	report := services.BuildReport(run.Result, run.Conformance)

	log.Println("\n" + strings.Repeat("=", 50))
	log.Println("📊 Ranking")
	for _, rc := range report.Ranked {
		log.Printf("   #%d %-30s %5.1f  (%s, técnico %s / potencial %s)",
			rc.Rank, rc.Candidate.Name, rc.Candidate.MatchScore, rc.ScoreBand, rc.Cell.Technical, rc.Cell.Potential)
	}
	for _, f := range report.InvalidFiles {
		log.Printf("   ✗ %s: %s", f.Name, f.Reason)
	}
	if report.BestCandidate != nil {
		log.Printf("🏆 Best candidate: %s", report.BestCandidate.Candidate.Name)
	} else {
		log.Println("⚠️  No candidate reached the high match threshold")
	}
	log.Printf("💬 %s", report.Result.Recommendation)
	log.Printf("🔢 Tokens: %d in / %d out / %d total",
		report.TokenUsage.InputTokens, report.TokenUsage.OutputTokens, report.TokenUsage.TotalTokens)
	for _, f := range report.Conformance {
		log.Printf("🔍 %s %s %q: %s", f.CandidateID, f.Field, f.Value, f.Message)
	}
	log.Println(strings.Repeat("=", 50))

	if len(os.Args) > 3 {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("❌ Failed to encode report: %v", err)
		}
		if err := os.WriteFile(os.Args[3], out, 0o644); err != nil {
			log.Fatalf("❌ Failed to write report: %v", err)
		}
		log.Printf("✅ Report written to %s", os.Args[3])
	}
}

// collectFiles lists regular files in dir in name order, which becomes the
// upload order.
func collectFiles(dir string) ([]services.IncomingFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]services.IncomingFile, 0, len(names))
	for _, name := range names {
		f, err := services.IncomingFromPath(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
