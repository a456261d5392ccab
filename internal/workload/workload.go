// Package workload decodes process sets from files and loosely-typed records
// into validated scheduling inputs.
package workload

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/me/priosim/pkg/model"
	"gopkg.in/yaml.v3"
)

// Format names a workload encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Document is a decoded workload file.
type Document struct {
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description" yaml:"description"`
	Processes   []model.ProcessSpec `json:"processes" yaml:"processes"`
}

var fields = []string{"arrival", "burst", "priority"}

// FormatFromPath picks a format from the file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	default:
		return FormatYAML
	}
}

// LoadFile reads and decodes a workload file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload %s: %w", path, err)
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Parse decodes data in the given format. Malformed documents and non-integer
// fields are reported as VALIDATION_ERROR APIErrors.
func Parse(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatCSV:
		specs, err := ParseCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &Document{Processes: specs}, nil
	case FormatJSON, FormatYAML:
		// YAML is a superset of JSON; one decoder covers both.
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("%s parse error: %v", format, err))
		}
		return fromRaw(raw)
	default:
		return nil, model.NewValidationError(fmt.Sprintf("unsupported workload format %q", format))
	}
}

func fromRaw(raw any) (*Document, error) {
	doc := &Document{}
	var list any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		doc.Name, _ = v["name"].(string)
		doc.Description, _ = v["description"].(string)
		list = v["processes"]
	default:
		return nil, model.NewValidationError("workload must be a list of processes or a document with a processes list")
	}

	items, ok := list.([]any)
	if !ok {
		return nil, model.NewValidationError("missing processes list",
			model.FieldError{Field: "processes", Message: "must be a list"})
	}
	records := make([]map[string]any, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, model.NewValidationError("invalid process entry",
				model.FieldError{Field: fmt.Sprintf("processes[%d]", i), Message: "must be an object"})
		}
		records[i] = rec
	}

	specs, err := FromRecords(records)
	if err != nil {
		return nil, err
	}
	doc.Processes = specs
	return doc, nil
}

// FromRecords converts loosely-typed records (decoded JSON/YAML objects or form
// values) into process specs. Every field must be present and hold an integer,
// either as a number without fractional part or as a decimal string.
// Range checks are left to the registry.
func FromRecords(records []map[string]any) ([]model.ProcessSpec, error) {
	var details []model.FieldError
	specs := make([]model.ProcessSpec, len(records))
	for i, rec := range records {
		vals := [3]int{}
		for j, name := range fields {
			field := fmt.Sprintf("processes[%d].%s", i, name)
			v, ok := rec[name]
			if !ok || v == nil {
				details = append(details, model.FieldError{Field: field, Message: "required"})
				continue
			}
			n, err := toInt(v)
			if err != nil {
				details = append(details, model.FieldError{Field: field, Message: err.Error()})
				continue
			}
			vals[j] = n
		}
		specs[i] = model.ProcessSpec{Arrival: vals[0], Burst: vals[1], Priority: vals[2]}
	}
	if len(details) > 0 {
		return nil, model.NewValidationError("invalid process fields", details...)
	}
	return specs, nil
}

func toInt(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case uint64:
		if x > math.MaxInt32 {
			return 0, fmt.Errorf("out of range: %d", x)
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		if math.Abs(x) > math.MaxInt32 {
			return 0, fmt.Errorf("out of range: %v", x)
		}
		n = int64(x)
	case json.Number:
		i, err := parseInt(x.String())
		if err != nil {
			return 0, err
		}
		n = i
	case string:
		i, err := parseInt(strings.TrimSpace(x))
		if err != nil {
			return 0, err
		}
		n = i
	default:
		return 0, fmt.Errorf("not an integer: %v", v)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("out of range: %d", n)
	}
	return int(n), nil
}

func parseInt(s string) (int64, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("out of range: %s", s)
		}
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return i, nil
}

// ParseCSV reads rows of arrival,burst,priority. A header row naming the
// columns may reorder them; extra columns are ignored.
func ParseCSV(r io.Reader) ([]model.ProcessSpec, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("csv parse error: %v", err))
	}

	cols := map[string]int{"arrival": 0, "burst": 1, "priority": 2}
	if len(rows) > 0 && isHeader(rows[0]) {
		cols = map[string]int{}
		for i, name := range rows[0] {
			cols[strings.ToLower(strings.TrimSpace(name))] = i
		}
		for _, name := range fields {
			if _, ok := cols[name]; !ok {
				return nil, model.NewValidationError("csv header is missing a column",
					model.FieldError{Field: name, Message: "column required"})
			}
		}
		rows = rows[1:]
	}

	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rec := map[string]any{}
		for _, name := range fields {
			if idx := cols[name]; idx < len(row) {
				rec[name] = row[idx]
			}
		}
		records = append(records, rec)
	}
	return FromRecords(records)
}

func isHeader(row []string) bool {
	for _, cell := range row {
		if _, err := strconv.Atoi(strings.TrimSpace(cell)); err != nil {
			return true
		}
	}
	return false
}

// Sample returns the seven-process demonstration workload.
func Sample() *Document {
	return &Document{
		Name:        "sample",
		Description: "Seven processes with staggered arrivals and mixed priorities",
		Processes: []model.ProcessSpec{
			{Arrival: 0, Burst: 4, Priority: 2},
			{Arrival: 1, Burst: 3, Priority: 1},
			{Arrival: 2, Burst: 1, Priority: 4},
			{Arrival: 3, Burst: 5, Priority: 3},
			{Arrival: 4, Burst: 2, Priority: 5},
			{Arrival: 5, Burst: 4, Priority: 1},
			{Arrival: 6, Burst: 6, Priority: 2},
		},
	}
}
