package dataset

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// MissingColumnsError names the required columns a table lacks.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: [%s]", strings.Join(e.Missing, ", "))
}

// RequireColumns checks that every column in required is present.
// Missing columns are reported in the order they were requested.
func RequireColumns(df dataframe.DataFrame, required []string) error {
	present := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		present[name] = struct{}{}
	}

	var missing []string
	for _, name := range required {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}
