package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "penguincli/internal/errors"
	"penguincli/pkg/contracts/domain"
)

// Format selects how an input file is decoded.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DuplicatePolicy decides what happens when an identifier repeats.
type DuplicatePolicy string

const (
	// DuplicateReject fails the load on the first repeated identifier.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateWarn keeps the last row and logs a warning.
	DuplicateWarn DuplicatePolicy = "warn"
	// DuplicateOverwrite keeps the last row silently.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// LoadOptions configures LoadFile and LoadCSV.
type LoadOptions struct {
	Format          Format
	Sheet           string // XLSX only, defaults to the first sheet
	DuplicatePolicy DuplicatePolicy
	Logger          *slog.Logger
}

// LoadStats summarises a completed load.
type LoadStats struct {
	Rows       int `json:"rows"`       // data rows read, header excluded
	Records    int `json:"records"`    // distinct identifiers kept
	Duplicates int `json:"duplicates"` // rows whose identifier was already present
}

// ColumnCountError reports a data row without exactly domain.ColumnCount columns.
type ColumnCountError struct {
	Line     int
	Expected int
	Actual   int
}

func (e *ColumnCountError) Error() string {
	return fmt.Sprintf("line %d: expected %d columns, got %d", e.Line, e.Expected, e.Actual)
}

// FieldError reports a numeric column holding text that is neither a number
// nor the missing-value sentinel.
type FieldError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("line %d: column %s: invalid value %q", e.Line, e.Column, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// DuplicateIDError reports a repeated identifier under DuplicateReject.
type DuplicateIDError struct {
	ID        string
	FirstLine int
	Line      int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("line %d: identifier %q already defined on line %d", e.Line, e.ID, e.FirstLine)
}

// DetectFormat resolves FormatAuto from the file extension.
func DetectFormat(path string, format Format) Format {
	if format != "" && format != FormatAuto {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// LoadFile reads specimen records from path. A missing file fails with a
// NOT_FOUND AppError and a malformed row with a PARSING AppError. On failure
// no collection is returned.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*domain.Collection, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, LoadStats{}, apperrors.NewNotFoundError(fmt.Sprintf("input file %s", path)).
				WithContext("path", path)
		}
		return nil, LoadStats{}, apperrors.NewStorageError("cannot open input file", err).
			WithContext("path", path)
	}
	defer f.Close()

	switch DetectFormat(path, opts.Format) {
	case FormatXLSX:
		return loadXLSX(ctx, f, path, opts)
	case FormatCSV:
		return loadCSV(ctx, f, path, opts)
	default:
		return nil, LoadStats{}, apperrors.NewAppValidationError(fmt.Sprintf("unsupported input format %q", opts.Format))
	}
}

// LoadCSV reads comma-separated specimen records from r. The first row is a
// header and is discarded.
func LoadCSV(ctx context.Context, r io.Reader, opts LoadOptions) (*domain.Collection, LoadStats, error) {
	return loadCSV(ctx, r, "", opts)
}

func loadCSV(ctx context.Context, r io.Reader, source string, opts LoadOptions) (*domain.Collection, LoadStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // column counts are checked per row with a clearer error

	b := newCollectionBuilder(source, opts)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, LoadStats{}, b.fail(apperrors.NewParsingError("input has no header row", nil))
		}
		return nil, LoadStats{}, b.fail(apperrors.NewParsingError("cannot read header row", err))
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, LoadStats{}, b.fail(apperrors.NewParsingError("malformed CSV", err))
		}
		line, _ := reader.FieldPos(0)
		if err := b.add(ctx, line, row); err != nil {
			return nil, LoadStats{}, err
		}
	}

	return b.finish(ctx)
}

func loadXLSX(ctx context.Context, r io.Reader, source string, opts LoadOptions) (*domain.Collection, LoadStats, error) {
	b := newCollectionBuilder(source, opts)

	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, LoadStats{}, b.fail(apperrors.NewParsingError("cannot open workbook", err))
	}
	defer wb.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, LoadStats{}, b.fail(apperrors.NewParsingError("workbook has no sheets", nil))
		}
		sheet = sheets[0]
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, LoadStats{}, b.fail(apperrors.NewParsingError(fmt.Sprintf("cannot read sheet %q", sheet), err))
	}
	b.logger.DebugContext(ctx, "Reading workbook sheet", slog.String("sheet", sheet), slog.Int("rows", len(rows)))

	headerSeen := false
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		// GetRows drops trailing empty cells.
		if len(row) < domain.ColumnCount {
			row = append(row, make([]string, domain.ColumnCount-len(row))...)
		}
		if err := b.add(ctx, i+1, row); err != nil {
			return nil, LoadStats{}, err
		}
	}
	if !headerSeen {
		return nil, LoadStats{}, b.fail(apperrors.NewParsingError("input has no header row", nil))
	}

	return b.finish(ctx)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// collectionBuilder turns positional rows into a collection and applies the
// duplicate policy.
type collectionBuilder struct {
	coll      *domain.Collection
	firstLine map[string]int
	policy    DuplicatePolicy
	source    string
	logger    *slog.Logger
	stats     LoadStats
}

func newCollectionBuilder(source string, opts LoadOptions) *collectionBuilder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.DuplicatePolicy
	if policy == "" {
		policy = DuplicateWarn
	}
	return &collectionBuilder{
		coll:      domain.NewCollection(),
		firstLine: make(map[string]int),
		policy:    policy,
		source:    source,
		logger:    logger.With(slog.String("component", "loader")),
	}
}

func (b *collectionBuilder) add(ctx context.Context, line int, row []string) error {
	b.stats.Rows++

	rec, err := parseRow(line, row)
	if err != nil {
		return b.fail(apperrors.NewParsingError("malformed row", err).WithContext("line", line))
	}

	if first, seen := b.firstLine[rec.ID]; seen {
		b.stats.Duplicates++
		dup := &DuplicateIDError{ID: rec.ID, FirstLine: first, Line: line}
		switch b.policy {
		case DuplicateReject:
			return b.fail(apperrors.NewAppError(apperrors.ErrTypeValidation, "duplicate identifier", dup).
				WithContext("id", rec.ID).
				WithContext("line", line))
		case DuplicateWarn:
			b.logger.WarnContext(ctx, "Duplicate identifier, keeping the later row",
				slog.String("id", rec.ID),
				slog.Int("first_line", first),
				slog.Int("line", line))
		}
	} else {
		b.firstLine[rec.ID] = line
	}

	b.coll.Put(rec)
	return nil
}

func (b *collectionBuilder) finish(ctx context.Context) (*domain.Collection, LoadStats, error) {
	b.stats.Records = b.coll.Len()
	b.logger.InfoContext(ctx, "Loaded specimen records",
		slog.String("source", b.source),
		slog.Int("rows", b.stats.Rows),
		slog.Int("records", b.stats.Records),
		slog.Int("duplicates", b.stats.Duplicates))
	return b.coll, b.stats, nil
}

func (b *collectionBuilder) fail(err *apperrors.AppError) error {
	if b.source != "" {
		err.WithContext("path", b.source)
	}
	return err
}

// parseRow maps columns by position: id, species, island, bill_length_mm,
// bill_depth_mm, flipper_length_mm, body_mass_g, sex, year.
func parseRow(line int, row []string) (domain.Record, error) {
	if len(row) != domain.ColumnCount {
		return domain.Record{}, &ColumnCountError{Line: line, Expected: domain.ColumnCount, Actual: len(row)}
	}

	rec := domain.Record{
		ID:      row[0],
		Species: domain.ParseLabel(row[1]),
		Island:  domain.ParseLabel(row[2]),
		Sex:     domain.ParseLabel(row[7]),
		Year:    row[8],
	}

	measurements := []struct {
		col int
		dst *domain.Measurement
	}{
		{3, &rec.BillLengthMM},
		{4, &rec.BillDepthMM},
		{5, &rec.FlipperLengthMM},
		{6, &rec.BodyMassG},
	}
	for _, m := range measurements {
		v, err := domain.ParseMeasurement(row[m.col])
		if err != nil {
			return domain.Record{}, &FieldError{Line: line, Column: domain.Columns[m.col], Value: row[m.col], Err: err}
		}
		*m.dst = v
	}

	return rec, nil
}
