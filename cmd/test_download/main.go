package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/forest-guardian/truecolor-cli/internal/imaging"
	"github.com/forest-guardian/truecolor-cli/internal/logger"
	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/forest-guardian/truecolor-cli/internal/sentinel"
)

func main() {
	// Hardcoded test parameters - modify these to test different scenarios
	start := "2024-01-01"
	end := "2024-01-10"
	format := sentinel.FormatPNG
	mode := sentinel.ModeTrueColor

	fmt.Println("=== Truecolor Test Image Download ===")
	fmt.Printf("Dates: %s to %s\n", start, end)
	fmt.Printf("Format: %s, mode: %s\n", format, mode)
	fmt.Println()

	properties.LoadEnv(".env", "../.env", "../../.env")
	cfg, err := properties.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.HasCredentials() {
		fmt.Println("Make sure you have set the required environment variables:")
		fmt.Println("- SH_CLIENT_ID")
		fmt.Println("- SH_CLIENT_SECRET")
		os.Exit(1)
	}

	zl := logger.Build(logger.Config{Level: "debug", Console: true, Component: "test_download"}, os.Stderr)
	builder := sentinel.NewBuilder(cfg, &zl)
	width, height := builder.Dimensions()
	fmt.Printf("Bounding box: %v\n", cfg.BBox)
	fmt.Printf("Output size: %dx%d at %.0f m\n", width, height, cfg.Resolution)

	dates, err := sentinel.ParseDateRange(start, end)
	if err != nil {
		log.Fatalf("Invalid dates: %v", err)
	}
	desc, err := builder.Build(dates, sentinel.OutputOptions{FileFormat: format, Mode: mode})
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}

	began := time.Now()
	data, err := sentinel.NewClient(cfg, &zl).Fetch(context.Background(), desc)
	if err != nil {
		log.Fatalf("Failed to get image: %v", err)
	}
	fmt.Println("✓ Image downloaded successfully")

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Bytes received: %d\n", len(data))
	fmt.Printf("Time taken: %s\n", time.Since(began).Round(time.Millisecond))

	raw, err := imaging.Decode(data)
	if err != nil {
		log.Fatalf("Failed to decode image: %v", err)
	}
	processed, err := imaging.Process(raw, mode.Brightness(), imaging.UnitClip)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	path, err := imaging.NewPreviewRenderer(cfg.PreviewFolder).Show(processed, "test_download")
	if err != nil {
		log.Fatalf("Failed to render preview: %v", err)
	}
	fmt.Printf("Preview: %s\n", path)
}
