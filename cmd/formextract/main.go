package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ragchat/internal/extract"
	"ragchat/internal/loader"
	"ragchat/internal/logger"
)

func main() {
	_ = godotenv.Load()

	var pdfPath, model string
	flag.StringVar(&pdfPath, "pdf", "", "Path to the grant form PDF")
	flag.StringVar(&model, "model", "", "Gemini model name (default gemini-2.0-flash)")
	flag.Parse()
	if pdfPath == "" {
		fmt.Println("Usage: formextract --pdf=form.pdf [--model=gemini-2.0-flash]")
		os.Exit(1)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}

	zlog, err := logger.New("")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()
	ex, err := extract.New(ctx, apiKey, model, loader.NewPDFLoader(zlog))
	if err != nil {
		log.Fatalf("extractor init failed: %v", err)
	}

	result, err := ex.ExtractFile(ctx, pdfPath)
	if err != nil {
		log.Fatalf("extraction failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}
