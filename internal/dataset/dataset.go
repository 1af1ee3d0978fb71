package dataset

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/parse"
)

// Dataset is the normalized listings table. It is built once and never
// modified; accessors hand out copies.
type Dataset struct {
	columns []string
	records []models.NormalizedRecord
}

// New builds a Dataset from a raw table, applying the field parsers
// column-wise. The table must carry every column in models.RawColumns.
func New(df dataframe.DataFrame) (*Dataset, error) {
	if err := RequireColumns(df, models.RawColumns); err != nil {
		return nil, err
	}

	cols := make(map[string][]string, len(models.RawColumns))
	for _, name := range models.RawColumns {
		values, err := Column(df, name)
		if err != nil {
			return nil, err
		}
		cols[name] = values
	}

	n := df.Nrow()
	raw := make([]models.RawRecord, n)
	for i := 0; i < n; i++ {
		raw[i] = models.RawRecord{
			Name:      cols[models.ColName][i],
			Company:   cols[models.ColCompany][i],
			Year:      cols[models.ColYear][i],
			Price:     cols[models.ColPrice][i],
			KmsDriven: cols[models.ColKmsDriven][i],
			FuelType:  cols[models.ColFuelType][i],
		}
	}

	columns := append([]string{}, df.Names()...)
	for _, derived := range []string{models.ColPriceNum, models.ColKmsNum, models.ColYearNum} {
		if !HasColumn(df, derived) {
			columns = append(columns, derived)
		}
	}

	return &Dataset{
		columns: columns,
		records: Normalize(raw),
	}, nil
}

// Normalize derives price_num, kms_num and year_num for every record.
func Normalize(raw []models.RawRecord) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, len(raw))
	for i, r := range raw {
		out[i] = models.NormalizedRecord{
			RawRecord: r,
			PriceNum:  parse.Price(r.Price),
			KmsNum:    parse.Kms(r.KmsDriven),
			YearNum:   parse.Year(r.Year),
		}
	}
	return out
}

// Records returns a copy of every normalized record.
func (d *Dataset) Records() []models.NormalizedRecord {
	return append([]models.NormalizedRecord(nil), d.records...)
}

// Head returns a copy of the first n records.
func (d *Dataset) Head(n int) []models.NormalizedRecord {
	if n < 0 {
		n = 0
	}
	if n > len(d.records) {
		n = len(d.records)
	}
	return append([]models.NormalizedRecord(nil), d.records[:n]...)
}

// Columns lists the source columns followed by the derived ones.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// Len is the number of rows.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Shape returns rows and columns, derived columns included.
func (d *Dataset) Shape() (int, int) {
	return len(d.records), len(d.columns)
}

func (d *Dataset) String() string {
	rows, cols := d.Shape()
	return fmt.Sprintf("dataset(%d rows x %d columns)", rows, cols)
}
