package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	headerTokenRe = regexp.MustCompile(`([a-zA-Z._-]+) = ([^,]*),?`)
	floatPrefixRe = regexp.MustCompile(`^[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)
	boolRe        = regexp.MustCompile(`true|false`)
	fileTokenRe   = regexp.MustCompile(`^([a-zA-Z.-]+)=(.+)$`)
)

// infinityLiteral is what exporters write for unbounded parameters. It is
// rewritten to an overflowing exponent, which parses to +Inf.
const infinityLiteral = "Infinity"

// isDataLine reports whether a line starts a numeric data row.
func isDataLine(line string) bool {
	return line != "" && line[0] >= '0' && line[0] <= '9'
}

// ParseValue converts a raw header value into a typed coordinate value.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(strings.ReplaceAll(raw, infinityLiteral, "1e30000"))
	if floatPrefixRe.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil || errors.Is(err, strconv.ErrRange) {
			return Float(f)
		}
	}
	lower := strings.ToLower(s)
	if m := boolRe.FindString(lower); m != "" {
		return Bool(strings.Contains(lower, "true"))
	}
	return String(s)
}

// headerCoordinates scans header lines for "name = value" tokens. Later lines
// overwrite duplicate keys from earlier ones.
func headerCoordinates(header []string) Coordinates {
	coords := Coordinates{}
	for _, line := range header {
		for _, m := range headerTokenRe.FindAllStringSubmatch(line, -1) {
			coords[m[1]] = ParseValue(m[2])
		}
	}
	return coords
}

// headerVariables returns the column names declared by the last non-blank
// header line, dropping a leading comment marker.
func headerVariables(header []string) []string {
	for i := len(header) - 1; i >= 0; i-- {
		line := strings.TrimSpace(header[i])
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "#")
		return strings.Fields(line)
	}
	return []string{}
}

type fileSections struct {
	header []string
	rows   [][]float64
}

// readSections splits a data file into its header lines and parsed data rows.
// When headerOnly is set, reading stops at the first data line.
func readSections(r io.Reader, headerOnly bool) (*fileSections, error) {
	sections := &fileSections{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRightFunc(scanner.Text(), unicode.IsSpace)
		if !isDataLine(line) {
			if len(sections.rows) == 0 {
				sections.header = append(sections.header, line)
			}
			continue
		}
		if headerOnly {
			break
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("line %d, column %d: %w", lineNo, i+1, err)
			}
			row[i] = v
		}
		sections.rows = append(sections.rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan data file: %w", err)
	}
	return sections, nil
}

func readFileSections(path string, headerOnly bool) (*fileSections, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	sections, err := readSections(file, headerOnly)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sections, nil
}

// ExtractCoordinates reads the header of a data file and returns the scalar
// parameters it declares. A file without header tokens yields an empty map.
func ExtractCoordinates(path string) (Coordinates, error) {
	sections, err := readFileSections(path, true)
	if err != nil {
		return nil, err
	}
	return headerCoordinates(sections.header), nil
}

// ExtractVariableNames returns the column names of a data file, in column order.
func ExtractVariableNames(path string) ([]string, error) {
	sections, err := readFileSections(path, true)
	if err != nil {
		return nil, err
	}
	return headerVariables(sections.header), nil
}

// OpenCSV returns the numeric data rows of a file. Header lines are skipped.
func OpenCSV(path string) ([][]float64, error) {
	sections, err := readFileSections(path, false)
	if err != nil {
		return nil, err
	}
	return sections.rows, nil
}

// FilenameCoordinates extracts "name=value" tokens from a data file name of
// the form <prefix>_<name>=<value>_... .csv.
func FilenameCoordinates(path, prefix string) Coordinates {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if prefix != "" {
		base = strings.TrimPrefix(base, prefix+"_")
	}
	coords := Coordinates{}
	for _, token := range strings.Split(base, "_") {
		if m := fileTokenRe.FindStringSubmatch(token); m != nil {
			coords[m[1]] = ParseValue(m[2])
		}
	}
	return coords
}

// ParseRunFile reads a whole data file in one pass. Coordinates found in the
// header override the ones encoded in the file name.
func ParseRunFile(path, prefix string) (*RawRun, error) {
	sections, err := readFileSections(path, false)
	if err != nil {
		return nil, err
	}
	coords := FilenameCoordinates(path, prefix)
	for k, v := range headerCoordinates(sections.header) {
		coords[k] = v
	}
	return &RawRun{
		Path:        path,
		Coordinates: coords,
		Variables:   headerVariables(sections.header),
		Rows:        sections.rows,
	}, nil
}
