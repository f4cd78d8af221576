package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"spotdecode/internal/tableio"
	"spotdecode/pkg/config"
	"spotdecode/pkg/stats"
)

func main() {
	// Parse command line arguments
	codebookPath := flag.String("codebook", "", "JSON codebook file")
	intensityPath := flag.String("intensities", "", "CSV intensity table from the spot finder")
	outputPath := flag.String("output", "decoded.csv", "Output CSV filename")
	configPath := flag.String("config", "spotdecode.yaml", "YAML configuration file")
	algorithm := flag.String("algorithm", "", "Override the configured decoding algorithm")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *codebookPath == "" || *intensityPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *algorithm != "" {
		cfg.Decoder.Algorithm = *algorithm
	}

	dec, err := config.BuildDecoder(cfg)
	if err != nil {
		log.Fatalf("Failed to build decoder: %v", err)
	}

	cb, err := tableio.ReadCodebook(*codebookPath)
	if err != nil {
		log.Fatalf("Failed to read codebook: %v", err)
	}
	table, err := tableio.ReadIntensities(*intensityPath, cb.Rounds(), cb.Channels())
	if err != nil {
		log.Fatalf("Failed to read intensities: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Printf("Loaded codebook: %d targets, %d rounds x %d channels\n", cb.Len(), cb.Rounds(), cb.Channels())
		fmt.Printf("Loaded %d spots\n", table.NumSpots())
		fmt.Printf("Decoding with %s...\n", dec.Name())
	}

	startTime := time.Now()
	decoded, err := dec.Decode(context.Background(), table, cb)
	if err != nil {
		log.Fatalf("Decoding failed: %v", err)
	}
	elapsed := time.Since(startTime)

	summary := stats.Summarize(decoded)
	fmt.Printf("\nDecoding completed in %.2f seconds\n\n", elapsed.Seconds())
	fmt.Print(summary)

	out := decoded
	if cfg.Output.MinQuality > 0 {
		out = decoded.FilterByQuality(cfg.Output.MinQuality)
		fmt.Printf("\nWriting %d of %d records with quality >= %.2f\n", out.Len(), decoded.Len(), cfg.Output.MinQuality)
	}
	if err := tableio.WriteDecoded(*outputPath, out); err != nil {
		log.Fatalf("Failed to write decoded table: %v", err)
	}
	if cfg.Output.Verbose {
		fmt.Printf("Decoded table saved to: %s\n", *outputPath)
	}
}
