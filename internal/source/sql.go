package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Supported database/sql drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQL streams the result of a query as batches.
type SQL struct {
	db      *sql.DB
	ownsDB  bool
	rows    *sql.Rows
	schema  *vector.Schema
	batcher *rowBatcher
	logger  log.Logger
	done    bool
}

// OpenSQL connects with driver and dsn and runs query.
func OpenSQL(ctx context.Context, driver, dsn, query string, batchSize int, logger log.Logger) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	s, err := QuerySQL(ctx, db, driver, query, batchSize, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// QuerySQL runs query on an existing database handle. Closing the source does
// not close db.
func QuerySQL(ctx context.Context, db *sql.DB, driver, query string, batchSize int, logger log.Logger) (*SQL, error) {
	if logger == nil {
		logger = log.Default()
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	cols, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, err
	}

	fields := make([]vector.Field, len(cols))
	for i, c := range cols {
		dt, err := sqlType(driver, c.DatabaseTypeName())
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("column %s: %w", c.Name(), err)
		}
		fields[i] = vector.Field{Name: c.Name(), Type: dt}
	}
	schema := vector.NewSchema(fields...)

	logger.Debug("sql source opened", log.String("driver", driver), log.String("schema", schema.String()))
	return &SQL{
		db:      db,
		rows:    rows,
		schema:  schema,
		batcher: newRowBatcher(schema, batchSize),
		logger:  logger,
	}, nil
}

// sqlType maps a database column type name onto an engine type. SQLite
// INTEGER columns hold 64-bit values.
func sqlType(driver, name string) (types.DataType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}

	switch name {
	case "INT2", "SMALLINT", "INT4", "INT":
		return types.Integer, nil
	case "INTEGER":
		if driver == DriverSQLite {
			return types.BigInt, nil
		}
		return types.Integer, nil
	case "INT8", "BIGINT":
		return types.BigInt, nil
	case "FLOAT4", "FLOAT8", "REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT", "NUMERIC", "DECIMAL":
		return types.Double, nil
	case "BOOL", "BOOLEAN":
		return types.Boolean, nil
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME", "CHARACTER", "CHARACTER VARYING", "CLOB":
		return types.Text, nil
	case "":
		return nil, fmt.Errorf("column has no declared type")
	default:
		return nil, fmt.Errorf("unsupported column type %s", name)
	}
}

func (s *SQL) Schema() *vector.Schema { return s.schema }

func (s *SQL) Next(ctx context.Context) (*vector.Batch, error) {
	if s.done {
		return nil, io.EOF
	}

	width := len(s.schema.Fields)
	dest := make([]interface{}, width)
	for i := range dest {
		dest[i] = new(interface{})
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.rows.Next() {
			if err := s.rows.Err(); err != nil {
				return nil, fmt.Errorf("reading rows: %w", err)
			}
			s.done = true
			s.logger.Debug("sql source exhausted", log.Int64("rows", s.batcher.rows))
			return s.batcher.flush()
		}
		if err := s.rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("row %d: %w", s.batcher.rows, err)
		}

		row := types.Row{Values: make([]types.Value, width)}
		for i, f := range s.schema.Fields {
			v, err := toValue(f.Type, dest[i])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", s.batcher.rows, f.Name, err)
			}
			row.Values[i] = v
		}

		b, err := s.batcher.add(row)
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
	}
}

func (s *SQL) Close() error {
	err := s.rows.Close()
	if s.ownsDB {
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
