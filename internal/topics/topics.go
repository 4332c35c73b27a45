// Package topics extracts the ordered list of article topics from an uploaded
// CSV, plain text or spreadsheet file.
package topics

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadable is returned when the file cannot be decoded in its declared format
var ErrUnreadable = errors.New("topics file is unreadable")

// ErrUnsupportedFormat is returned for legacy binary .xls workbooks
var ErrUnsupportedFormat = errors.New("unsupported topics file format, save the workbook as .xlsx or .csv")

var utf8BOM = []byte("\xef\xbb\xbf")

// Parse returns the non-empty topics in file order. The format is chosen
// from the file extension. Plain text and unknown files are read one topic
// per line.
func Parse(filename string, data []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseSpreadsheet(data)
	case ".xls":
		return nil, ErrUnsupportedFormat
	case ".csv":
		return parseCSV(data)
	default:
		return parseLines(data), nil
	}
}

// parseCSV reads a topic column when the header row names one. Anything
// else is read one topic per line, so commas stay part of the topic.
func parseCSV(data []byte) ([]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil || len(header) < 2 {
		return parseLines(data), nil
	}
	col := topicColumn(header)
	if col < 0 {
		return parseLines(data), nil
	}

	var topics []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if col >= len(record) {
			continue
		}
		if topic := strings.TrimSpace(record[col]); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

// parseLines keeps every non-empty trimmed line, dropping a leading
// "topic"/"topics" header. A line wrapped in double quotes is unquoted.
func parseLines(data []byte) []string {
	data = bytes.TrimPrefix(data, utf8BOM)

	var topics []string
	first := true
	for _, line := range strings.Split(string(data), "\n") {
		topic := unquote(strings.TrimSpace(line))
		if topic == "" {
			continue
		}
		if first {
			first = false
			if isHeader(topic) {
				continue
			}
		}
		topics = append(topics, topic)
	}
	return topics
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	record, err := csv.NewReader(strings.NewReader(s)).Read()
	if err != nil || len(record) != 1 {
		return s
	}
	return strings.TrimSpace(record[0])
}

// topicColumn returns the index of the first header cell mentioning "topic"
func topicColumn(header []string) int {
	for i, cell := range header {
		if strings.Contains(strings.ToLower(cell), "topic") {
			return i
		}
	}
	return -1
}

func parseSpreadsheet(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col, start := 0, 0
	if i := topicColumn(rows[0]); i >= 0 {
		col, start = i, 1
	}

	var topics []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		if topic := strings.TrimSpace(row[col]); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

// isHeader matches "topic"/"topics" ignoring case and non-letters
func isHeader(s string) bool {
	letters := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
	return letters == "topic" || letters == "topics"
}
