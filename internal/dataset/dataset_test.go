package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/xuri/excelize/v2"
)

const fixturePath = "testdata/cars.csv"

func TestFormatFromFilename(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromFilename("upload.csv"))
	assert.Equal(t, FormatCSV, FormatFromFilename("upload.txt"))
	assert.Equal(t, FormatCSV, FormatFromFilename("upload"))
	assert.Equal(t, FormatXLSX, FormatFromFilename("Upload.XLSX"))
}

func TestReadTable_CSVKeepsTextVerbatim(t *testing.T) {
	input := "company,year,kms_driven,note\nMaruti,2015,1e5,NA\n"

	df, err := ReadTable(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"company", "year", "kms_driven", "note"}, df.Names())
	kms, err := Column(df, "kms_driven")
	require.NoError(t, err)
	assert.Equal(t, []string{"1e5"}, kms)
	note, err := Column(df, "note")
	require.NoError(t, err)
	assert.Equal(t, []string{"NA"}, note)
}

func TestReadTable_CSVStripsByteOrderMark(t *testing.T) {
	input := "\xEF\xBB\xBFcompany,fuel_type\nHyundai,Diesel\n"

	df, err := ReadTable(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.True(t, HasColumn(df, "company"))
}

func TestReadTable_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"company", "fuel_type", "year", "kms_driven"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Maruti", "Petrol", "2015", "45,000 kms"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Tata", "Diesel"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	df, err := ReadTable(bytes.NewReader(buf.Bytes()), FormatXLSX)
	require.NoError(t, err)

	rows, cols := df.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 4, cols)
	kms, err := Column(df, "kms_driven")
	require.NoError(t, err)
	assert.Equal(t, []string{"45,000 kms", ""}, kms)
}

func TestReadTable_UnsupportedFormat(t *testing.T) {
	_, err := ReadTable(strings.NewReader("a\n1\n"), Format("parquet"))
	assert.Error(t, err)
}

func TestReadTable_MalformedCSV(t *testing.T) {
	_, err := ReadTable(strings.NewReader("a,b\n1,2,3\n"), FormatCSV)
	assert.Error(t, err)
}

func TestReadTable_CSVPadsShortRows(t *testing.T) {
	input := "company,year,kms_driven,fuel_type\nMaruti,2015\nTata,2018,\"30,000 kms\",Diesel\n"

	df, err := ReadTable(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	rows, cols := df.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 4, cols)
	kms, err := Column(df, "kms_driven")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "30,000 kms"}, kms)
	fuel, err := Column(df, "fuel_type")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Diesel"}, fuel)
}

func TestReadTable_CSVLongRowReportsLine(t *testing.T) {
	_, err := ReadTable(strings.NewReader("a,b\n1,2\n1,2,3\n"), FormatCSV)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadTable_EmptyCSV(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), FormatCSV)

	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestReadTable_RenamesRepeatedHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "second occurrence gets a suffix",
			input:    "year,company,year\n2015,Maruti,2016\n",
			expected: []string{"year", "company", "year.1"},
		},
		{
			name:     "suffix skips names already present",
			input:    "year,year,year.1\n2015,2016,2017\n",
			expected: []string{"year", "year.2", "year.1"},
		},
		{
			name:     "blank header cells are named by position",
			input:    ",company,\n0,Maruti,x\n",
			expected: []string{"Unnamed: 0", "company", "Unnamed: 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df, err := ReadTable(strings.NewReader(tt.input), FormatCSV)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, df.Names())
		})
	}
}

func TestReadTable_RepeatedHeaderKeepsFirstColumn(t *testing.T) {
	df, err := ReadTable(strings.NewReader("year,company,year\n2015,Maruti,2016\n"), FormatCSV)
	require.NoError(t, err)

	year, err := Column(df, "year")
	require.NoError(t, err)
	assert.Equal(t, []string{"2015"}, year)
}

func TestRequireColumns(t *testing.T) {
	df, err := ReadTable(strings.NewReader("company,year,kms_driven\nMaruti,2015,100\n"), FormatCSV)
	require.NoError(t, err)

	assert.NoError(t, RequireColumns(df, []string{"company", "year"}))

	err = RequireColumns(df, models.PredictionColumns)
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"fuel_type", "year_num", "kms_num"}, missing.Missing)
	assert.Equal(t, "missing columns: [fuel_type, year_num, kms_num]", err.Error())
}

func TestLoadFile_NormalizesFixture(t *testing.T) {
	ds, err := LoadFile(fixturePath)
	require.NoError(t, err)

	rows, cols := ds.Shape()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 10, cols, "7 source columns plus 3 derived")
	assert.Equal(t, []string{"price_num", "kms_num", "year_num"}, ds.Columns()[7:])

	records := ds.Records()

	maruti := records[0]
	assert.Equal(t, "Maruti", maruti.Company)
	assert.Equal(t, "4,50,000", maruti.Price)
	assert.True(t, maruti.PriceNum.Valid)
	assert.Equal(t, 450000.0, maruti.PriceNum.Float64)
	assert.Equal(t, 45000.0, maruti.KmsNum.Float64)
	assert.Equal(t, int64(2015), maruti.YearNum.Int64)

	mahindra := records[2]
	assert.False(t, mahindra.PriceNum.Valid, "Ask For Price is missing")
	assert.Equal(t, 12000.0, mahindra.KmsNum.Float64)

	ford := records[3]
	assert.False(t, ford.YearNum.Valid)
	assert.False(t, ford.KmsNum.Valid)
	assert.Equal(t, "", ford.FuelType)

	toyota := records[5]
	assert.Equal(t, 5000.0, toyota.KmsNum.Float64)
	assert.Equal(t, 3200000.0, toyota.PriceNum.Float64)
}

func TestLoadFile_ShortRowIsMissingNotFatal(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "cars.csv")
	body := "name,company,year,Price,kms_driven,fuel_type\n" +
		"Swift,Maruti,2015,\"4,50,000\",\"45,000 kms\",Petrol\n" +
		"Figo,Ford,2012,\"1,75,000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	// Act
	ds, err := LoadFile(path)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	figo := ds.Records()[1]
	assert.Equal(t, "Ford", figo.Company)
	assert.Equal(t, 175000.0, figo.PriceNum.Float64)
	assert.False(t, figo.KmsNum.Valid)
	assert.Equal(t, "", figo.FuelType)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.csv"))

	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_MissingRawColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,company,year\nSwift,Maruti,2015\n"), 0o600))

	_, err := LoadFile(path)

	assert.ErrorIs(t, err, ErrLoad)
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"Price", "kms_driven", "fuel_type"}, missing.Missing)
}

func TestLoader_ReadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cars.csv")
	body, err := os.ReadFile(fixturePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	loader := NewLoader(path, logger.Nop())

	first, err := loader.Load()
	require.NoError(t, err)

	// The file is gone; a second read would fail.
	require.NoError(t, os.Remove(path))

	second, err := loader.Load()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoader_CachesFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.csv")
	loader := NewLoader(path, logger.Nop())

	_, err := loader.Load()
	require.ErrorIs(t, err, ErrLoad)

	body, readErr := os.ReadFile(fixturePath)
	require.NoError(t, readErr)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	ds, err := loader.Load()
	assert.ErrorIs(t, err, ErrLoad)
	assert.Nil(t, ds)
}

func TestDataset_AccessorsReturnCopies(t *testing.T) {
	ds, err := LoadFile(fixturePath)
	require.NoError(t, err)

	records := ds.Records()
	records[0].Company = "Changed"
	cols := ds.Columns()
	cols[0] = "changed"

	assert.Equal(t, "Maruti", ds.Records()[0].Company)
	assert.Equal(t, "Unnamed: 0", ds.Columns()[0])
}

func TestDataset_Head(t *testing.T) {
	ds, err := LoadFile(fixturePath)
	require.NoError(t, err)

	assert.Len(t, ds.Head(2), 2)
	assert.Len(t, ds.Head(100), 6)
	assert.Empty(t, ds.Head(-1))
	assert.Equal(t, "Maruti", ds.Head(1)[0].Company)
}
