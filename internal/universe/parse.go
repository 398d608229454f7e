package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrColumnNotFound is returned when no table carries the requested column.
var ErrColumnNotFound = errors.New("symbol column not found")

// ParseHTMLTable returns the cells of column from the first HTML table whose
// header row contains it.
func ParseHTMLTable(r io.Reader, column string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var symbols []string
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		idx := -1
		rows.First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
			if idx < 0 && strings.EqualFold(strings.TrimSpace(cell.Text()), column) {
				idx = i
			}
		})
		if idx < 0 {
			return true
		}
		found = true
		rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cell := row.Find("td").Eq(idx)
			if cell.Length() == 0 {
				return
			}
			if s := strings.TrimSpace(cell.Text()); s != "" {
				symbols = append(symbols, s)
			}
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return symbols, nil
}

// ParseCSV returns the values of column from CSV data with a header row.
func ParseCSV(r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}

	var symbols []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		if idx >= len(record) {
			continue
		}
		if s := strings.TrimSpace(record[idx]); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}
