// Package warehouse provides ClickHouse storage for observation data.
//
// Inserts go through the ch-go native protocol with columnar batches
// (the write-heavy path); reads use clickhouse-go/v2 row scanning
// (the analysis path, where ergonomics beat raw throughput).
package warehouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/egiron/wheat-night-lab/internal/pheno"
)

// DefaultTable is the observation table name.
const DefaultTable = "observations"

// observationDDL is the observation table schema.
const observationDDL = `CREATE TABLE IF NOT EXISTS %s (
	loc_no       UInt32,
	loc_desc     String,
	country      String,
	lat          Float64,
	lon          Float64,
	year         UInt16,
	occ          UInt8,
	genotype     String,
	tmin_gf      Float64,
	tmax_gf      Float64,
	yield_t_ha   Float64,
	srad_gf      Float64,
	gfill_days   Float64,
	column_count UInt8
) ENGINE = MergeTree
ORDER BY (loc_no, year, occ)`

// EnsureTable creates the observation table if it does not exist.
func EnsureTable(ctx context.Context, conn *ch.Client, tableFQN string) error {
	return conn.Do(ctx, ch.Query{Body: fmt.Sprintf(observationDDL, tableFQN)})
}

// Truncate removes all rows from the observation table.
func Truncate(ctx context.Context, conn *ch.Client, tableFQN string) error {
	return conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", tableFQN)})
}

// =============================================================================
// Insert Batch (ch-go native columns)
// =============================================================================

// ObservationBatch holds column data for native insert
type ObservationBatch struct {
	LocNo       *proto.ColUInt32
	LocDesc     *proto.ColStr
	Country     *proto.ColStr
	Lat         *proto.ColFloat64
	Lon         *proto.ColFloat64
	Year        *proto.ColUInt16
	Occ         *proto.ColUInt8
	Genotype    *proto.ColStr
	TminGF      *proto.ColFloat64
	TmaxGF      *proto.ColFloat64
	Yield       *proto.ColFloat64
	SolRadGF    *proto.ColFloat64
	GFillDays   *proto.ColFloat64
	ColumnCount *proto.ColUInt8
}

// NewObservationBatch creates an empty columnar insert batch.
func NewObservationBatch() *ObservationBatch {
	return &ObservationBatch{
		LocNo:       new(proto.ColUInt32),
		LocDesc:     new(proto.ColStr),
		Country:     new(proto.ColStr),
		Lat:         new(proto.ColFloat64),
		Lon:         new(proto.ColFloat64),
		Year:        new(proto.ColUInt16),
		Occ:         new(proto.ColUInt8),
		Genotype:    new(proto.ColStr),
		TminGF:      new(proto.ColFloat64),
		TmaxGF:      new(proto.ColFloat64),
		Yield:       new(proto.ColFloat64),
		SolRadGF:    new(proto.ColFloat64),
		GFillDays:   new(proto.ColFloat64),
		ColumnCount: new(proto.ColUInt8),
	}
}

func (b *ObservationBatch) Reset() {
	b.LocNo.Reset()
	b.LocDesc.Reset()
	b.Country.Reset()
	b.Lat.Reset()
	b.Lon.Reset()
	b.Year.Reset()
	b.Occ.Reset()
	b.Genotype.Reset()
	b.TminGF.Reset()
	b.TmaxGF.Reset()
	b.Yield.Reset()
	b.SolRadGF.Reset()
	b.GFillDays.Reset()
	b.ColumnCount.Reset()
}

func (b *ObservationBatch) Len() int {
	return b.LocNo.Rows()
}

func (b *ObservationBatch) Input() proto.Input {
	return proto.Input{
		{Name: "loc_no", Data: b.LocNo},
		{Name: "loc_desc", Data: b.LocDesc},
		{Name: "country", Data: b.Country},
		{Name: "lat", Data: b.Lat},
		{Name: "lon", Data: b.Lon},
		{Name: "year", Data: b.Year},
		{Name: "occ", Data: b.Occ},
		{Name: "genotype", Data: b.Genotype},
		{Name: "tmin_gf", Data: b.TminGF},
		{Name: "tmax_gf", Data: b.TmaxGF},
		{Name: "yield_t_ha", Data: b.Yield},
		{Name: "srad_gf", Data: b.SolRadGF},
		{Name: "gfill_days", Data: b.GFillDays},
		{Name: "column_count", Data: b.ColumnCount},
	}
}

// Append adds one observation to the columnar batch.
func (b *ObservationBatch) Append(obs *pheno.Observation) {
	b.LocNo.Append(obs.LocNo)
	b.LocDesc.Append(obs.LocDesc)
	b.Country.Append(obs.Country)
	b.Lat.Append(obs.Lat)
	b.Lon.Append(obs.Lon)
	b.Year.Append(obs.Year)
	b.Occ.Append(obs.Occ)
	b.Genotype.Append(obs.Genotype)
	b.TminGF.Append(obs.TminGF)
	b.TmaxGF.Append(obs.TmaxGF)
	b.Yield.Append(obs.Yield)
	b.SolRadGF.Append(obs.SolRadGF)
	b.GFillDays.Append(obs.GrainFillDays)
	b.ColumnCount.Append(obs.ColumnCount)
}

// Flush inserts the batch contents and resets the batch.
// A zero-length batch is a no-op.
func (b *ObservationBatch) Flush(ctx context.Context, conn *ch.Client, tableFQN string) error {
	if b.Len() == 0 {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (loc_no, loc_desc, country, lat, lon, year, occ, genotype, tmin_gf, tmax_gf, yield_t_ha, srad_gf, gfill_days, column_count) VALUES", tableFQN)
	if err := conn.Do(ctx, ch.Query{
		Body:  query,
		Input: b.Input(),
	}); err != nil {
		return err
	}
	b.Reset()
	return nil
}

// =============================================================================
// Query Side (clickhouse-go/v2)
// =============================================================================

// ConnOptions holds connection settings for the query side.
type ConnOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

// OpenQueryConn opens a clickhouse-go/v2 connection for the analysis path.
func OpenQueryConn(opts ConnOptions) (driver.Conn, error) {
	return clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
}

// SelectObservations reads the complete observation table, ordered by
// site, year and occurrence so downstream statistics are deterministic.
func SelectObservations(ctx context.Context, conn driver.Conn, table string) ([]pheno.Observation, error) {
	query := fmt.Sprintf(`SELECT
		loc_no, loc_desc, country, lat, lon, year, occ, genotype,
		tmin_gf, tmax_gf, yield_t_ha, srad_gf, gfill_days, column_count
	FROM %s ORDER BY loc_no, year, occ`, table)

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []pheno.Observation
	for rows.Next() {
		var obs pheno.Observation
		if err := rows.Scan(
			&obs.LocNo, &obs.LocDesc, &obs.Country, &obs.Lat, &obs.Lon,
			&obs.Year, &obs.Occ, &obs.Genotype,
			&obs.TminGF, &obs.TmaxGF, &obs.Yield, &obs.SolRadGF,
			&obs.GrainFillDays, &obs.ColumnCount,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
