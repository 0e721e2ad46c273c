package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"chronos/internal/model"

	"github.com/google/uuid"
)

// Column names written to each worksheet. Matching on read ignores case so
// sheets written with capitalized headers (Main_Task, Name) still load.
var (
	logsHeader = []string{
		"employee", "main_task", "sub_task", "start_date", "end_date", "output",
		"issue", "dependency", "progress", "score", "status", "id",
	}
	employeesHeader = []string{"name", "id"}
	projectsHeader  = []string{"project", "id"}
)

// Sheets serial dates count days from 1899-12-30.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	model.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006", // day first, as entered by the dashboard users
	"2/1/2006",
}

// headerIndex maps a normalized column name to its position.
type headerIndex map[string]int

func newHeaderIndex(header []interface{}) headerIndex {
	idx := make(headerIndex, len(header))
	for i, cell := range header {
		key := normalizeHeader(cellString(cell))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

func (h headerIndex) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func (h headerIndex) get(row []interface{}, column string) interface{} {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

func (h headerIndex) text(row []interface{}, column string) string {
	return cellString(h.get(row, column))
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func blankRow(row []interface{}) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}

// parseDate coerces a cell to a calendar date. Anything unparseable is missing.
func parseDate(v interface{}) model.Date {
	switch t := v.(type) {
	case float64:
		return serialDate(t)
	case int:
		return serialDate(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return model.Date{}
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return model.DateOf(parsed)
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(f)
		}
	}
	return model.Date{}
}

func serialDate(serial float64) model.Date {
	if serial < 1 || serial > 2958465 || math.IsNaN(serial) {
		return model.Date{}
	}
	return model.DateOf(serialEpoch.AddDate(0, 0, int(serial)))
}

// parseInt accepts integers and integral-looking decimals ("40", "40.0", 40.0).
func parseInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t)), true
	case int:
		return t, true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	return 0, false
}

// decodeRows normalizes the Logs worksheet. Missing numbers default to 0,
// missing text to "", a missing status to "in progress", a missing id to a new one.
func decodeRows(values [][]interface{}) ([]model.TaskRow, error) {
	if len(values) == 0 {
		return []model.TaskRow{}, nil
	}

	h := newHeaderIndex(values[0])
	if err := h.require("employee", "main_task", "sub_task"); err != nil {
		return nil, err
	}

	rows := make([]model.TaskRow, 0, len(values)-1)
	for _, raw := range values[1:] {
		if blankRow(raw) {
			continue
		}

		row := model.TaskRow{
			ID:         strings.TrimSpace(h.text(raw, "id")),
			Employee:   strings.TrimSpace(h.text(raw, "employee")),
			MainTask:   strings.TrimSpace(h.text(raw, "main_task")),
			SubTask:    h.text(raw, "sub_task"),
			StartDate:  parseDate(h.get(raw, "start_date")),
			EndDate:    parseDate(h.get(raw, "end_date")),
			Output:     h.text(raw, "output"),
			Issue:      h.text(raw, "issue"),
			Dependency: h.text(raw, "dependency"),
			Status:     model.Status(h.text(raw, "status")),
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		progress, ok := parseInt(h.get(raw, "progress"))
		if text := strings.TrimSpace(h.text(raw, "progress")); !ok && text != "" {
			row.RawProgress = text
		}
		row.Progress = progress
		score, _ := parseInt(h.get(raw, "score"))
		row.Score = &score
		if row.Status == "" {
			row.Status = model.StatusInProgress
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeRows(rows []model.TaskRow) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, headerRow(logsHeader))
	for _, r := range rows {
		score := ""
		if r.Score != nil {
			score = strconv.Itoa(*r.Score)
		}
		progress := strconv.Itoa(r.Progress)
		if r.ProgressMalformed() {
			progress = r.RawProgress
		}
		values = append(values, []interface{}{
			r.Employee,
			r.MainTask,
			r.SubTask,
			r.StartDate.String(),
			r.EndDate.String(),
			r.Output,
			r.Issue,
			r.Dependency,
			progress,
			score,
			string(r.Status),
			r.ID,
		})
	}
	return values
}

type namedEntry struct {
	ID   string
	Name string
}

// decodeNames reads a one-name-per-row roster. Blank and duplicate names are skipped.
func decodeNames(values [][]interface{}, column string) ([]namedEntry, error) {
	if len(values) == 0 {
		return []namedEntry{}, nil
	}

	h := newHeaderIndex(values[0])
	if err := h.require(column); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	entries := make([]namedEntry, 0, len(values)-1)
	for _, raw := range values[1:] {
		name := strings.TrimSpace(h.text(raw, column))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		id := strings.TrimSpace(h.text(raw, "id"))
		if id == "" {
			id = uuid.NewString()
		}
		entries = append(entries, namedEntry{ID: id, Name: name})
	}
	return entries, nil
}

func encodeNames(header []string, entries []namedEntry) [][]interface{} {
	values := make([][]interface{}, 0, len(entries)+1)
	values = append(values, headerRow(header))
	for _, e := range entries {
		values = append(values, []interface{}{e.Name, e.ID})
	}
	return values
}

// missingIDs reports whether a worksheet holds entries without a persisted id.
func missingIDs(values [][]interface{}) bool {
	if len(values) < 2 {
		return false
	}
	h := newHeaderIndex(values[0])
	for _, raw := range values[1:] {
		if !blankRow(raw) && strings.TrimSpace(h.text(raw, "id")) == "" {
			return true
		}
	}
	return false
}

func headerRow(header []string) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}
