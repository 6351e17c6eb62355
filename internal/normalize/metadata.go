package normalize

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// preambleLines is the fixed number of KEY;VALUE metadata lines that precede
// the column header in every archive CSV.
const preambleLines = 8

// Metadata holds the station identity block from a file preamble. Any field
// may be empty when the preamble line is missing or malformed.
type Metadata struct {
	Region      string
	UF          string
	StationName string
	StationCode string
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
}

var stationFromName = regexp.MustCompile(`_([A-Z]\d{3})_`)

// ReadMetadata parses the eight-line preamble of an archive CSV. The preamble
// is always Latin-1 regardless of how the data section decodes.
func ReadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	var md Metadata
	sc := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))
	for i := 0; i < preambleLines && sc.Scan(); i++ {
		applyMetadataLine(&md, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

func applyMetadataLine(md *Metadata, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		// Older exports separate key and value with the delimiter only.
		key, value, ok = strings.Cut(line, ";")
		if !ok {
			return
		}
	}
	// Values frequently carry a leading delimiter artifact ("UF:;PE").
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), ";"))

	switch normalizeKey(key) {
	case "regiao":
		md.Region = value
	case "uf":
		md.UF = value
	case "estacao":
		md.StationName = value
	case "codigo (wmo)", "codigo", "codigo estacao":
		md.StationCode = value
	case "latitude":
		md.Latitude = parseCoordinate(value)
	case "longitude":
		md.Longitude = parseCoordinate(value)
	case "altitude":
		md.Altitude = parseCoordinate(value)
	}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.TrimSuffix(key, ":")
}

func parseCoordinate(value string) *float64 {
	v, ok := parseNumber(value)
	if !ok {
		return nil
	}
	return &v
}

// StationCodeFromFilename recovers a station code from archive file names of
// the form INMET_NE_PE_A301_RECIFE_...csv.
func StationCodeFromFilename(name string) string {
	m := stationFromName.FindStringSubmatch(strings.ToUpper(name))
	if m == nil {
		return ""
	}
	return m[1]
}
