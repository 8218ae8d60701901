// pheno-ingest - Wheat phenology-weather observation ingestion into ClickHouse
//
// Supports the curated observation formats:
//   - CSV (.csv): Site/year grain-fill weather and yield rows
//   - Gzipped CSV (.csv.gz)
//   - Parquet (.parquet): Archived observation datasets
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/pheno-ingest ./cmd/pheno-ingest

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/klauspost/pgzip"

	"github.com/egiron/wheat-night-lab/internal/common"
	"github.com/egiron/wheat-night-lab/internal/pheno"
	"github.com/egiron/wheat-night-lab/internal/warehouse"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const (
	// BatchSize is the number of observations buffered before a flush
	BatchSize = 8192

	// GzipReaderBlocks is the pgzip read-ahead block count
	GzipReaderBlocks = 4
)

// Command-line flags
var (
	chHost    = flag.String("ch-host", "127.0.0.1:9000", "ClickHouse address")
	chDB      = flag.String("ch-db", "pheno", "ClickHouse database")
	chTable   = flag.String("ch-table", warehouse.DefaultTable, "ClickHouse table")
	sourceDir = flag.String("source-dir", "", "Observation source directory (default: config data dir)")
	truncate  = flag.Bool("truncate", false, "Truncate table before insert")
	skipBad   = flag.Bool("skip-bad", false, "Skip malformed rows instead of aborting")
	silent    = flag.Bool("silent", false, "Suppress progress output")
)

// openSource opens an observation file, transparently decompressing .gz
func openSource(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReaderN(f, 1<<20, GzipReaderBlocks)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		closer := func() error {
			gz.Close()
			return f.Close()
		}
		return gz, closer, nil
	}

	return bufio.NewReaderSize(f, 64*1024), f.Close, nil
}

// ingestCsv streams one CSV file into ClickHouse through the columnar batch
func ingestCsv(ctx context.Context, conn *ch.Client, tableFQN, path string, stats *pheno.ParseStats, tele *common.Stats) (int64, error) {
	reader, closeFn, err := openSource(path)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	if info, err := os.Stat(path); err == nil {
		tele.AddBytes(uint64(info.Size()))
	}

	colBatch := warehouse.NewObservationBatch()
	var inserted int64

	batch := pheno.NewBatch(BatchSize)
	onFull := func(b *pheno.Batch) (*pheno.Batch, error) {
		flushStart := time.Now()
		for i := 0; i < b.Count; i++ {
			colBatch.Append(&b.Obs[i])
		}
		n := colBatch.Len()
		if err := colBatch.Flush(ctx, conn, tableFQN); err != nil {
			return nil, err
		}
		tele.SetBatchLatency(uint64(time.Since(flushStart).Nanoseconds()))
		tele.AddRows(uint64(n))
		inserted += int64(n)
		b.Reset()
		return b, nil
	}

	opts := pheno.ParseOptions{Strict: !*skipBad}
	if err := pheno.ParseCsvStream(reader, batch, opts, stats, onFull); err != nil {
		return inserted, err
	}

	// Flush the partial tail batch
	if _, err := onFull(batch); err != nil {
		return inserted, err
	}

	return inserted, nil
}

// ingestParquet loads a parquet archive and inserts it in one pass
func ingestParquet(ctx context.Context, conn *ch.Client, tableFQN, path string, tele *common.Stats) (int64, error) {
	obs, err := pheno.ReadParquetFile(path)
	if err != nil {
		return 0, err
	}

	if info, err := os.Stat(path); err == nil {
		tele.AddBytes(uint64(info.Size()))
	}

	colBatch := warehouse.NewObservationBatch()
	var inserted int64
	for i := range obs {
		colBatch.Append(&obs[i])
		if colBatch.Len() >= BatchSize {
			n := colBatch.Len()
			if err := colBatch.Flush(ctx, conn, tableFQN); err != nil {
				return inserted, err
			}
			tele.AddRows(uint64(n))
			inserted += int64(n)
		}
	}

	n := colBatch.Len()
	if err := colBatch.Flush(ctx, conn, tableFQN); err != nil {
		return inserted, err
	}
	tele.AddRows(uint64(n))
	inserted += int64(n)

	return inserted, nil
}

func isObservationFile(name string) bool {
	return strings.HasSuffix(name, ".csv") ||
		strings.HasSuffix(name, ".csv.gz") ||
		strings.HasSuffix(name, ".parquet")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pheno-ingest v%s - Observation Data Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Ingests wheat phenology-weather observations into ClickHouse.\n\n")
		fmt.Fprintf(os.Stderr, "Supported formats:\n")
		fmt.Fprintf(os.Stderr, "  - CSV (.csv, .csv.gz): Site/year observation rows\n")
		fmt.Fprintf(os.Stderr, "  - Parquet (.parquet): Archived observation datasets\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg := common.DefaultConfig()
	if *sourceDir == "" {
		*sourceDir = cfg.PhenoDataDir()
	}

	log.Println("=========================================================")
	log.Printf("Pheno Ingest v%s", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Connect to ClickHouse
	log.Printf("Connecting to ClickHouse at %s...", *chHost)
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     *chHost,
		Database:    *chDB,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	tableFQN := fmt.Sprintf("%s.%s", *chDB, *chTable)
	log.Printf("Table: %s", tableFQN)

	if err := warehouse.EnsureTable(ctx, conn, tableFQN); err != nil {
		log.Fatalf("Table creation failed: %v", err)
	}

	if *truncate {
		log.Printf("Truncating table %s...", tableFQN)
		if err := warehouse.Truncate(ctx, conn, tableFQN); err != nil {
			log.Printf("Truncate warning: %v", err)
		}
	}

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
			if !e.IsDir() && isObservationFile(e.Name()) {
				files = append(files, filepath.Join(*sourceDir, e.Name()))
			}
		}
	}

	if len(files) == 0 {
		log.Fatal("No files to process")
	}

	log.Printf("Found %d file(s)", len(files))
	log.Printf("Parse mode: strict=%v", !*skipBad)

	tele := common.NewStats()
	tele.SetSilent(*silent)
	tele.StartReporter()

	startTime := time.Now()
	stats := &pheno.ParseStats{}
	var totalInserted int64

	for _, filePath := range files {
		if ctx.Err() != nil {
			break
		}

		var inserted int64
		var err error

		if strings.HasSuffix(filePath, ".parquet") {
			inserted, err = ingestParquet(ctx, conn, tableFQN, filePath, tele)
		} else {
			inserted, err = ingestCsv(ctx, conn, tableFQN, filePath, stats, tele)
		}

		if err != nil {
			log.Fatalf("[%s] Ingest failed: %v", filepath.Base(filePath), err)
		}

		log.Printf("[%s] Inserted %d rows", filepath.Base(filePath), inserted)
		totalInserted += inserted
	}

	tele.StopReporter()
	elapsed := time.Since(startTime)
	_, sanitized := pheno.GetSanitizerStats()

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Rows Read:        %d", stats.TotalRowsRead)
	log.Printf("Rows Parsed:      %d", stats.SuccessfullyParsed)
	log.Printf("Rows Failed:      %d", stats.FailedRows)
	log.Printf("Headers Skipped:  %d", stats.SkippedHeaderRows)
	log.Printf("Fields Sanitized: %d", sanitized)
	log.Printf("Rows Inserted:    %d", totalInserted)
	log.Printf("Elapsed:          %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:             %.0f rows/sec", float64(totalInserted)/elapsed.Seconds())
	log.Println("=========================================================")
}
