package service

import (
	"fmt"

	"chronos/internal/model"
)

// DeriveStatus classifies a row against today and returns its display status
// and timeliness score. A nil score means the row is not scored yet.
//
// Rules, first match wins:
//   - start or end date missing, or progress unreadable: date incomplete, 0
//   - progress 100: completed, 100
//   - today before start: not yet started, nil
//   - today after end: late, progress
//   - otherwise: in progress, 100
//
// Anything unexpected, including progress outside [0,100], yields error, 0.
func DeriveStatus(row *model.TaskRow, today model.Date) (status model.Status, score *int) {
	defer func() {
		if r := recover(); r != nil {
			status, score = model.StatusError, intPtr(0)
		}
	}()

	if row == nil {
		panic("nil row")
	}
	if row.StartDate.IsZero() || row.EndDate.IsZero() || row.ProgressMalformed() {
		return model.StatusDateIncomplete, intPtr(0)
	}
	if row.Progress < 0 || row.Progress > 100 {
		panic(fmt.Sprintf("progress %d out of range", row.Progress))
	}

	switch {
	case row.Progress == 100:
		return model.StatusCompleted, intPtr(100)
	case today.Before(row.StartDate):
		return model.StatusNotStarted, nil
	case today.After(row.EndDate):
		return model.StatusLate, intPtr(row.Progress)
	default:
		return model.StatusInProgress, intPtr(100)
	}
}

// ApplyStatuses recomputes status and score for every row in place.
func ApplyStatuses(rows []model.TaskRow, today model.Date) {
	for i := range rows {
		rows[i].Status, rows[i].Score = DeriveStatus(&rows[i], today)
	}
}

func intPtr(v int) *int {
	return &v
}
