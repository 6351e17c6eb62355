package normalize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnreadableFile marks a file no encoding and delimiter combination could
// parse. The file is skipped and counted; the period continues.
var ErrUnreadableFile = errors.New("unreadable file")

var candidateEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"iso-8859-1", charmap.ISO8859_1},
	{"utf-8", unicode.UTF8},
	{"windows-1252", charmap.Windows1252},
}

var candidateDelimiters = []rune{';', ',', '\t'}

// table is one successfully decoded file: the winning header, its data rows
// and the physical line number of each row.
type table struct {
	header  []string
	rows    [][]string
	lineNum []int
}

// readTable tries every encoding and delimiter combination in a fixed order
// and returns the first one that yields a structurally plausible table.
func readTable(path string) (*table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	for _, e := range candidateEncodings {
		text, ok := decode(raw, e.enc, e.name)
		if !ok {
			continue
		}
		lines := splitLines(text)
		if len(lines) <= preambleLines {
			continue
		}
		for _, delim := range candidateDelimiters {
			if t := buildTable(lines, delim); t != nil {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnreadableFile, path)
}

func decode(raw []byte, enc encoding.Encoding, name string) (string, bool) {
	if name == "utf-8" {
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// buildTable interprets lines with one delimiter. The header sits directly
// after the preamble. A combination is rejected when the header degenerates
// to a single field or when too many rows disagree with its width.
func buildTable(lines []string, delim rune) *table {
	header := splitFields(lines[preambleLines], delim)
	if len(header) < 2 {
		return nil
	}

	t := &table{header: header}
	mismatched := 0
	for i, line := range lines[preambleLines+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line, delim)
		if len(fields) != len(header) {
			mismatched++
			if len(fields) > len(header) {
				fields = fields[:len(header)]
			}
		}
		t.rows = append(t.rows, fields)
		// Physical position: preamble, header, then 1-based data rows.
		t.lineNum = append(t.lineNum, preambleLines+2+i)
	}
	if len(t.rows) > 0 && mismatched*5 > len(t.rows) {
		return nil
	}
	return t
}

func splitFields(line string, delim rune) []string {
	fields := strings.Split(line, string(delim))
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	// Trailing delimiters are a fixture of the source exports.
	if len(fields) > 1 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// parseNumber reads a numeric cell, accepting both decimal comma and decimal
// point. Empty cells and textual nulls read as absent.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
