package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// Record is one data row keyed by the raw header names of its file.
// Line is the 1-based line (CSV) or row (XLSX) number in the source.
type Record struct {
	Line   int
	Fields map[string]string
}

// Result is the fully decoded content of one source.
type Result struct {
	Source   Source
	Records  []Record
	Encoding Encoding
	Bytes    int64

	// FellBack is set when the UTF-8 pass failed and the records come from
	// the ISO-8859-1 pass. PrimaryErr holds the reason.
	FellBack   bool
	PrimaryErr error
}

// Load reads every record of src.
//
// Either all records of the file are returned or none: a failed UTF-8 pass is
// discarded entirely before the fallback pass starts. Returns
// ErrSourceNotFound when the file does not exist and ErrDecodeFailure when the
// file cannot be read with any supported encoding. Only invalid UTF-8 triggers
// the fallback; other read errors are returned as they are.
func Load(src Source) (*Result, error) {
	if _, err := os.Stat(src.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrSourceNotFound, src.Path)
		}
		return nil, fmt.Errorf("stat %s: %w", src.Path, err)
	}

	if src.Format() == "xlsx" {
		return loadXLSX(src)
	}
	return loadCSV(src)
}

func loadCSV(src Source) (*Result, error) {
	records, n, err := readCSVFile(src.Path, EncodingUTF8)
	if err == nil {
		return &Result{Source: src, Records: records, Encoding: EncodingUTF8, Bytes: n}, nil
	}

	if !errors.Is(err, encoding.ErrInvalidUTF8) {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}

	primaryErr := err
	records, n, err = readCSVFile(src.Path, EncodingLatin1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: utf-8: %v; iso-8859-1: %v", catalog.ErrDecodeFailure, src.Name(), primaryErr, err)
	}
	return &Result{
		Source:     src,
		Records:    records,
		Encoding:   EncodingLatin1,
		Bytes:      n,
		FellBack:   true,
		PrimaryErr: primaryErr,
	}, nil
}

// readCSVFile opens path and parses it as CSV text in enc.
func readCSVFile(path string, enc Encoding) ([]Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	counter := &countingReader{r: f}
	records, err := ReadCSV(decoderFor(counter, enc))
	return records, counter.n, err
}

// ReadCSV parses already-decoded CSV text. The first row is the header.
//
// Rows may have fewer or more fields than the header; missing trailing
// fields are absent from Fields and extra fields are dropped. When a header
// name repeats, the first column with that name wins.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, Record{Line: line, Fields: zipHeader(header, row)})
	}
	return records, nil
}

func zipHeader(header, row []string) map[string]string {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(row) {
			break
		}
		if _, dup := fields[name]; dup {
			continue
		}
		fields[name] = row[i]
	}
	return fields
}

// loadXLSX reads the first sheet of an .xlsx workbook.
func loadXLSX(src Source) (*Result, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", catalog.ErrDecodeFailure, src.Name(), err)
	}
	defer f.Close()

	result := &Result{Source: src, Encoding: EncodingXLSX}
	if info, err := os.Stat(src.Path); err == nil {
		result.Bytes = info.Size()
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return result, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: sheet %s: %v", catalog.ErrDecodeFailure, src.Name(), sheets[0], err)
	}
	if len(rows) == 0 {
		return result, nil
	}

	header := rows[0]
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		result.Records = append(result.Records, Record{
			Line:   i + 2,
			Fields: zipHeader(header, row),
		})
	}
	return result, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
