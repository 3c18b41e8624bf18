package dataprocessing

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "penguincli/internal/errors"
	"penguincli/pkg/contracts/domain"
)

const penguinHeader = "id,species,island,bill_length_mm,bill_depth_mm,flipper_length_mm,body_mass_g,sex,year"

const samplePenguins = penguinHeader + `
1,Adelie,Torgersen,39.1,18.7,181,3750,male,2007
2,Adelie,Torgersen,39.5,17.4,186,3800,female,2007
4,Adelie,Torgersen,NA,NA,NA,NA,NA,2007
5,Chinstrap,Dream,46.5,17.9,192,3500,female,2007
6,Gentoo,Biscoe,46.1,13.2,211,4500,female,2007
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func quietOptions() LoadOptions {
	return LoadOptions{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
}

func TestLoadFile_CSV(t *testing.T) {
	path := writeFile(t, "penguins.csv", samplePenguins)

	coll, stats, err := LoadFile(context.Background(), path, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 5, Records: 5}, stats)
	assert.Equal(t, []string{"1", "2", "4", "5", "6"}, coll.IDs())

	rec, ok := coll.Get("1")
	require.True(t, ok)
	assert.Equal(t, domain.Record{
		ID:              "1",
		Species:         domain.Text("Adelie"),
		Island:          domain.Text("Torgersen"),
		BillLengthMM:    domain.Known(39.1),
		BillDepthMM:     domain.Known(18.7),
		FlipperLengthMM: domain.Known(181),
		BodyMassG:       domain.Known(3750),
		Sex:             domain.Text("male"),
		Year:            "2007",
	}, rec)

	missing, ok := coll.Get("4")
	require.True(t, ok)
	assert.False(t, missing.BillLengthMM.Valid)
	assert.False(t, missing.FlipperLengthMM.Valid)
	assert.False(t, missing.BodyMassG.Valid)
	assert.False(t, missing.Sex.Valid)
	assert.True(t, missing.Island.Valid)
}

func TestLoadFile_PositionalColumns(t *testing.T) {
	// Header text is ignored; position decides the field.
	content := "a,b,c,d,e,f,g,h,i\n7,Gentoo,Biscoe,50.0,15.2,218,5700,male,2009\n"
	path := writeFile(t, "renamed.csv", content)

	coll, _, err := LoadFile(context.Background(), path, quietOptions())
	require.NoError(t, err)

	rec, ok := coll.Get("7")
	require.True(t, ok)
	assert.Equal(t, "Biscoe", rec.Island.Value)
	assert.Equal(t, 218.0, rec.FlipperLengthMM.Value)
	assert.Equal(t, 5700.0, rec.BodyMassG.Value)
}

func TestLoadFile_HeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", penguinHeader+"\n")

	coll, stats, err := LoadFile(context.Background(), path, quietOptions())
	require.NoError(t, err)
	require.NotNil(t, coll)
	assert.Equal(t, 0, coll.Len())
	assert.Equal(t, LoadStats{}, stats)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantType apperrors.ErrorType
		check    func(t *testing.T, err error)
	}{
		{
			name:     "empty file has no header",
			content:  "",
			wantType: apperrors.ErrTypeParsing,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "no header row")
			},
		},
		{
			name:     "short row",
			content:  penguinHeader + "\n1,Adelie,Torgersen,39.1,18.7,181,3750,male,2007\n2,Adelie,Torgersen,39.5\n",
			wantType: apperrors.ErrTypeParsing,
			check: func(t *testing.T, err error) {
				var colErr *ColumnCountError
				require.ErrorAs(t, err, &colErr)
				assert.Equal(t, 3, colErr.Line)
				assert.Equal(t, 9, colErr.Expected)
				assert.Equal(t, 4, colErr.Actual)
				assert.Contains(t, err.Error(), "line 3: expected 9 columns, got 4")
			},
		},
		{
			name:     "long row",
			content:  penguinHeader + "\n1,Adelie,Torgersen,39.1,18.7,181,3750,male,2007,extra\n",
			wantType: apperrors.ErrTypeParsing,
			check: func(t *testing.T, err error) {
				var colErr *ColumnCountError
				require.ErrorAs(t, err, &colErr)
				assert.Equal(t, 10, colErr.Actual)
			},
		},
		{
			name:     "non numeric measurement",
			content:  penguinHeader + "\n1,Adelie,Torgersen,39.1,18.7,181,heavy,male,2007\n",
			wantType: apperrors.ErrTypeParsing,
			check: func(t *testing.T, err error) {
				var fieldErr *FieldError
				require.ErrorAs(t, err, &fieldErr)
				assert.Equal(t, 2, fieldErr.Line)
				assert.Equal(t, "body_mass_g", fieldErr.Column)
				assert.Equal(t, "heavy", fieldErr.Value)
			},
		},
		{
			name:     "broken quoting",
			content:  penguinHeader + "\n1,\"Adelie,Torgersen,39.1,18.7,181,3750,male,2007\n",
			wantType: apperrors.ErrTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.content)

			coll, _, err := LoadFile(context.Background(), path, quietOptions())
			require.Error(t, err)
			assert.Nil(t, coll, "a failed load must not return a collection")
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penguins.csv")

	coll, _, err := LoadFile(context.Background(), path, quietOptions())
	require.Error(t, err)
	assert.Nil(t, coll)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)
	assert.Equal(t, path, appErr.Context["path"])
	assert.Contains(t, err.Error(), "penguins.csv not found")
}

func TestLoadFile_DuplicatePolicies(t *testing.T) {
	content := penguinHeader + `
1,Adelie,Torgersen,39.1,18.7,181,3750,male,2007
2,Adelie,Torgersen,39.5,17.4,186,3800,female,2007
1,Adelie,Dream,40.0,18.0,190,3900,male,2008
`

	t.Run("overwrite keeps the last row in the first position", func(t *testing.T) {
		path := writeFile(t, "dups.csv", content)
		var logs bytes.Buffer
		opts := LoadOptions{DuplicatePolicy: DuplicateOverwrite, Logger: slog.New(slog.NewTextHandler(&logs, nil))}

		coll, stats, err := LoadFile(context.Background(), path, opts)
		require.NoError(t, err)

		assert.Equal(t, LoadStats{Rows: 3, Records: 2, Duplicates: 1}, stats)
		assert.Equal(t, []string{"1", "2"}, coll.IDs())
		rec, _ := coll.Get("1")
		assert.Equal(t, "Dream", rec.Island.Value)
		assert.NotContains(t, logs.String(), "Duplicate identifier")
	})

	t.Run("warn keeps the last row and logs", func(t *testing.T) {
		path := writeFile(t, "dups.csv", content)
		var logs bytes.Buffer
		opts := LoadOptions{DuplicatePolicy: DuplicateWarn, Logger: slog.New(slog.NewTextHandler(&logs, nil))}

		coll, stats, err := LoadFile(context.Background(), path, opts)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Duplicates)
		rec, _ := coll.Get("1")
		assert.Equal(t, "2008", rec.Year)
		assert.Contains(t, logs.String(), "Duplicate identifier")
		assert.Contains(t, logs.String(), "first_line=2")
		assert.Contains(t, logs.String(), "line=4")
	})

	t.Run("default policy is warn", func(t *testing.T) {
		path := writeFile(t, "dups.csv", content)
		var logs bytes.Buffer

		_, _, err := LoadFile(context.Background(), path, LoadOptions{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
		require.NoError(t, err)
		assert.Contains(t, logs.String(), "Duplicate identifier")
	})

	t.Run("reject fails the load", func(t *testing.T) {
		path := writeFile(t, "dups.csv", content)
		opts := quietOptions()
		opts.DuplicatePolicy = DuplicateReject

		coll, _, err := LoadFile(context.Background(), path, opts)
		require.Error(t, err)
		assert.Nil(t, coll)
		assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

		var dupErr *DuplicateIDError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "1", dupErr.ID)
		assert.Equal(t, 2, dupErr.FirstLine)
		assert.Equal(t, 4, dupErr.Line)
	})
}

func TestLoadCSV_Reader(t *testing.T) {
	coll, stats, err := LoadCSV(context.Background(), strings.NewReader(samplePenguins), quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 5, coll.Len())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		want   Format
	}{
		{"penguins.csv", FormatAuto, FormatCSV},
		{"penguins.CSV", "", FormatCSV},
		{"penguins.txt", FormatAuto, FormatCSV},
		{"penguins.xlsx", FormatAuto, FormatXLSX},
		{"penguins.XLSX", "", FormatXLSX},
		{"penguins.xlsx", FormatCSV, FormatCSV},
		{"penguins.dat", FormatXLSX, FormatXLSX},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path, tt.format))
		})
	}
}

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "penguins.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadFile_XLSX(t *testing.T) {
	header := []interface{}{"id", "species", "island", "bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g", "sex", "year"}
	path := writeWorkbook(t, "Specimens", [][]interface{}{
		header,
		{"1", "Adelie", "Torgersen", "39.1", "18.7", "181", "3750", "male", "2007"},
		{"2", "Chinstrap", "Dream", "NA", "NA", "NA", "NA", "NA", "2008"},
	})

	t.Run("first sheet by default", func(t *testing.T) {
		coll, stats, err := LoadFile(context.Background(), path, quietOptions())
		require.NoError(t, err)

		assert.Equal(t, LoadStats{Rows: 2, Records: 2}, stats)
		rec, ok := coll.Get("1")
		require.True(t, ok)
		assert.Equal(t, domain.Known(181), rec.FlipperLengthMM)
		assert.Equal(t, domain.Text("Torgersen"), rec.Island)

		na, ok := coll.Get("2")
		require.True(t, ok)
		assert.False(t, na.BodyMassG.Valid)
		assert.False(t, na.Sex.Valid)
	})

	t.Run("named sheet", func(t *testing.T) {
		opts := quietOptions()
		opts.Sheet = "Specimens"
		coll, _, err := LoadFile(context.Background(), path, opts)
		require.NoError(t, err)
		assert.Equal(t, 2, coll.Len())
	})

	t.Run("unknown sheet", func(t *testing.T) {
		opts := quietOptions()
		opts.Sheet = "Nope"
		_, _, err := LoadFile(context.Background(), path, opts)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
	})

	t.Run("csv bytes forced through xlsx fail to parse", func(t *testing.T) {
		csvPath := writeFile(t, "penguins.csv", samplePenguins)
		opts := quietOptions()
		opts.Format = FormatXLSX
		_, _, err := LoadFile(context.Background(), csvPath, opts)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
	})
}

func TestLoadFile_XLSXTrailingEmptyCells(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"id", "species", "island", "bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g", "sex", "year"},
		{"1", "Adelie", "Torgersen", "39.1", "18.7", "181", "3750", "male", ""},
	})

	coll, stats, err := LoadFile(context.Background(), path, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 1, Records: 1}, stats)

	rec, ok := coll.Get("1")
	require.True(t, ok)
	assert.Equal(t, domain.Text("male"), rec.Sex)
	assert.Empty(t, rec.Year)
}

func TestLoadFile_XLSXShortRow(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"id", "species", "island", "bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g", "sex", "year"},
		{"1", "Adelie", "Torgersen"},
	})

	_, _, err := LoadFile(context.Background(), path, quietOptions())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, 2, fieldErr.Line)
	assert.Equal(t, "bill_length_mm", fieldErr.Column)
}

func TestLoadFile_XLSXLongRow(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"id", "species", "island", "bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g", "sex", "year"},
		{"1", "Adelie", "Torgersen", "39.1", "18.7", "181", "3750", "male", "2007", "extra"},
	})

	_, _, err := LoadFile(context.Background(), path, quietOptions())
	require.Error(t, err)

	var colErr *ColumnCountError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, 2, colErr.Line)
	assert.Equal(t, 10, colErr.Actual)
}
