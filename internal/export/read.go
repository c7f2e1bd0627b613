package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadTable parses an uploaded CSV or XLSX file into a header line and data
// lines. The format is picked from the file extension; anything other than
// .xlsx is read as CSV.
func ReadTable(filename string, r io.Reader) (headers []string, lines [][]string, err error) {
	var all [][]string
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		all, err = readXLSX(r)
	} else {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		all, err = cr.ReadAll()
		if err != nil {
			err = fmt.Errorf("read csv: %w", err)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: file is empty", filepath.Base(filename))
	}
	headers = all[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return headers, all[1:], nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return rows, nil
}
