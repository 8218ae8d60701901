// pheno-parquet - Convert raw observation CSV exports to Parquet archives
//
// Reads curated station CSV exports (.csv or .csv.gz), validates every row
// in strict mode, and writes one Parquet file per input. Parquet is the
// archival format for the curated datasets; CSV stays the interchange format.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/pheno-parquet ./cmd/pheno-parquet

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/egiron/wheat-night-lab/internal/common"
	"github.com/egiron/wheat-night-lab/internal/pheno"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// Command-line flags
var (
	outDir    = flag.String("out-dir", "", "Output directory for Parquet files (default: config parquet dir)")
	sourceDir = flag.String("source-dir", "", "CSV source directory (default: config data dir)")
)

// outputName maps input.csv or input.csv.gz to input.parquet
func outputName(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".csv")
	return base + ".parquet"
}

// convertFile parses one CSV export and writes the Parquet archive.
func convertFile(inputPath, outputPath string) (int, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var reader io.Reader
	if strings.HasSuffix(inputPath, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, err
		}
		defer gz.Close()
		reader = gz
	} else {
		reader = bufio.NewReaderSize(f, 64*1024)
	}

	obs, stats, err := pheno.ReadObservations(reader)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, fmt.Errorf("no valid observations (read %d rows)", stats.TotalRowsRead)
	}

	if err := pheno.WriteParquetFile(outputPath, obs); err != nil {
		return 0, err
	}

	return len(obs), nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pheno-parquet v%s - CSV to Parquet Archiver\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Converts observation CSV exports (.csv, .csv.gz) to Parquet.\n")
		fmt.Fprintf(os.Stderr, "Parsing is strict: any malformed row aborts the conversion.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg := common.DefaultConfig()
	if *sourceDir == "" {
		*sourceDir = cfg.PhenoDataDir()
	}
	if *outDir == "" {
		*outDir = cfg.ParquetDataDir()
	}

	log.Println("=========================================================")
	log.Printf("Pheno Parquet Archiver v%s", Version)
	log.Println("=========================================================")

	// Discover files
	var files []string
	if len(flag.Args()) > 0 {
		files = flag.Args()
	} else {
		entries, err := os.ReadDir(*sourceDir)
		if err != nil {
			log.Fatalf("Cannot read source directory: %v", err)
		}
		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() && (strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv.gz")) {
				files = append(files, filepath.Join(*sourceDir, name))
			}
		}
	}

	if len(files) == 0 {
		log.Fatal("No CSV files to convert")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Cannot create output directory: %v", err)
	}

	log.Printf("Found %d file(s)", len(files))
	log.Printf("Output: %s", *outDir)

	startTime := time.Now()
	totalRows := 0

	for _, inputPath := range files {
		outputPath := filepath.Join(*outDir, outputName(inputPath))

		count, err := convertFile(inputPath, outputPath)
		if err != nil {
			log.Fatalf("[%s] Conversion failed: %v", filepath.Base(inputPath), err)
		}

		log.Printf("[%s] Wrote %d rows -> %s", filepath.Base(inputPath), count, filepath.Base(outputPath))
		totalRows += count
	}

	elapsed := time.Since(startTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files Converted: %d", len(files))
	log.Printf("Total Rows:      %d", totalRows)
	log.Printf("Elapsed:         %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")
}
