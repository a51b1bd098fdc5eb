package services

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadCardList loads card names from path. CSV files need a "name" column
// and may carry a "number" column, which is appended to the name; any other
// file is read as one name per line. Blank entries are dropped.
func ReadCardList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open card list: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ParseCardCSV(f)
	}
	return ParseCardLines(f)
}

// ParseCardLines reads one card name per line, trimming whitespace.
func ParseCardLines(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card list: %w", err)
	}
	return names, nil
}

// ParseCardCSV reads names from a CSV with a header row.
func ParseCardCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read card list header: %w", err)
	}
	nameCol, numberCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "card_name":
			nameCol = i
		case "number":
			numberCol = i
		}
	}
	if nameCol < 0 {
		return nil, errors.New("card list has no name column")
	}

	var names []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read card list: %w", err)
		}
		if nameCol >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}
		if numberCol >= 0 && numberCol < len(record) {
			if number := strings.TrimSpace(record[numberCol]); number != "" {
				name += " " + number
			}
		}
		names = append(names, name)
	}
	return names, nil
}
