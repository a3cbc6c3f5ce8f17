package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"

	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// ParquetOptions configures a Parquet source.
type ParquetOptions struct {
	BatchSize   int
	HTTPTimeout time.Duration
	Logger      log.Logger
}

// Parquet reads a Parquet file row by row into batches. Paths starting with
// http:// or https:// are read with range requests.
type Parquet struct {
	location string
	schema   *vector.Schema
	file     *parquet.File
	reader   *parquet.Reader
	closer   io.Closer
	batcher  *rowBatcher
	logger   log.Logger
	started  time.Time
	done     bool
}

// OpenParquet opens the Parquet file at location.
func OpenParquet(location string, opts ParquetOptions) (*Parquet, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var (
		file   *parquet.File
		closer io.Closer
		err    error
	)
	if isRemote(location) {
		file, err = openRemoteParquet(location, opts.HTTPTimeout)
	} else {
		file, closer, err = openLocalParquet(location)
	}
	if err != nil {
		return nil, err
	}

	schema, err := parquetSchema(file.Schema())
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("parquet %s: %w", location, err)
	}

	opts.Logger.Info("parquet source opened",
		log.String("location", location),
		log.Int("row_groups", len(file.RowGroups())),
		log.Int64("rows", file.NumRows()),
		log.String("schema", schema.String()))

	return &Parquet{
		location: location,
		schema:   schema,
		file:     file,
		reader:   parquet.NewReader(file),
		closer:   closer,
		batcher:  newRowBatcher(schema, opts.BatchSize),
		logger:   opts.Logger,
		started:  time.Now(),
	}, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func openLocalParquet(path string) (*parquet.File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to get file stats: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	return pf, f, nil
}

func openRemoteParquet(location string, timeout time.Duration) (*parquet.File, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	r, err := ranger.NewReader(&ranger.HTTPRanger{URL: u, Client: &http.Client{Timeout: timeout}})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP reader: %w", err)
	}
	length, err := r.Length()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTTP content length: %w", err)
	}
	pf, err := parquet.OpenFile(r, length)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote parquet file: %w", err)
	}
	return pf, nil
}

// parquetSchema maps top-level leaf columns onto engine types.
func parquetSchema(s *parquet.Schema) (*vector.Schema, error) {
	fields := make([]vector.Field, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		if !f.Leaf() || f.Repeated() {
			return nil, fmt.Errorf("column %s: nested and repeated columns are not supported", f.Name())
		}
		dt, err := parquetType(f.Type())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name(), err)
		}
		fields = append(fields, vector.Field{Name: f.Name(), Type: dt})
	}
	return vector.NewSchema(fields...), nil
}

func parquetType(t parquet.Type) (types.DataType, error) {
	switch t.Kind() {
	case parquet.Boolean:
		return types.Boolean, nil
	case parquet.Int32:
		return types.Integer, nil
	case parquet.Int64:
		return types.BigInt, nil
	case parquet.Float, parquet.Double:
		return types.Double, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return types.Text, nil
	default:
		return nil, fmt.Errorf("unsupported physical type %s", t.Kind())
	}
}

func (p *Parquet) Schema() *vector.Schema { return p.schema }

func (p *Parquet) Next(ctx context.Context) (*vector.Batch, error) {
	if p.done {
		return nil, io.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := make(map[string]interface{}, len(p.schema.Fields))
		if err := p.reader.Read(&raw); err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("parquet %s: %w", p.location, err)
			}
			p.done = true
			p.logger.Debug("parquet source exhausted",
				log.String("location", p.location),
				log.Int64("rows", p.batcher.rows),
				log.Elapsed(p.started))
			return p.batcher.flush()
		}

		row := types.Row{Values: make([]types.Value, len(p.schema.Fields))}
		for i, f := range p.schema.Fields {
			v, err := toValue(f.Type, raw[f.Name])
			if err != nil {
				return nil, fmt.Errorf("parquet %s: row %d column %s: %w", p.location, p.batcher.rows, f.Name, err)
			}
			row.Values[i] = v
		}

		b, err := p.batcher.add(row)
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
	}
}

func (p *Parquet) Close() error {
	err := p.reader.Close()
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
