package sheets

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"chronos/internal/model"
	"chronos/pkg/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = SheetNames{Logs: "Logs", Employees: "Employees", Projects: "Projects"}

// legacySpreadsheet mimics a sheet written by the first dashboard: capitalized
// headers, no id column and a stale status text.
func legacySpreadsheet() *fakeSpreadsheet {
	f := newFakeSpreadsheet()
	f.set("Logs",
		row("Employee", "Main_Task", "Sub_Task", "Start_Date", "End_Date", "Output", "Issue", "Dependency", "Progress", "Score", "Status"),
		row("Ann", "Apollo", "Design", "2024-01-01", "2024-01-10", "mockups", "- [02/01] kickoff", "- start fresh -", "40", "", "ล่าช้า"),
		row("Bob", "Apollo", "Build", "not a date", 45306.0, "", "", "Design", 100.0),
		row("", "", "", "", ""),
	)
	f.set("Employees", row("Name"), row("Ann"), row(" Bob "), row(""), row("Ann"))
	f.set("Projects", row("Project"), row("Apollo"))
	return f
}

func TestStore_LoadLegacySheet(t *testing.T) {
	store := NewStore(legacySpreadsheet(), testNames)

	ds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Warnings)

	require.Len(t, ds.Rows, 2, "blank rows are skipped")
	ann := ds.Rows[0]
	assert.NotEmpty(t, ann.ID)
	assert.Equal(t, "Ann", ann.Employee)
	assert.Equal(t, model.NewDate(2024, time.January, 1), ann.StartDate)
	assert.Equal(t, 40, ann.Progress)
	require.NotNil(t, ann.Score)
	assert.Equal(t, 0, *ann.Score)

	bob := ds.Rows[1]
	assert.True(t, bob.StartDate.IsZero(), "unparseable date becomes missing")
	assert.Equal(t, model.NewDate(2024, time.January, 15), bob.EndDate, "serial date")
	assert.Equal(t, 100, bob.Progress)
	assert.Equal(t, "", bob.Output)
	assert.Equal(t, model.StatusInProgress, bob.Status, "missing status defaults")

	require.Len(t, ds.Employees, 2, "blank and duplicate names are skipped")
	assert.Equal(t, "Bob", ds.Employees[1].Name)
	assert.Equal(t, ds.Employees[0].ID, ann.EmployeeID)
	assert.Equal(t, ds.Projects[0].ID, ann.ProjectID)
}

func TestStore_SaveWritesHeadersIdsAndISODates(t *testing.T) {
	f := legacySpreadsheet()
	store := NewStore(f, testNames)
	ctx := context.Background()

	ds, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, ds))

	logs := f.get("Logs")
	require.Len(t, logs, 3)
	assert.Equal(t, headerRow(logsHeader), logs[0])
	assert.Equal(t, "2024-01-01", logs[1][3])
	assert.Equal(t, "", logs[2][3], "missing date saved as empty string")
	assert.Equal(t, "2024-01-15", logs[2][4])
	assert.Equal(t, ds.Rows[0].ID, logs[1][11])

	employees := f.get("Employees")
	assert.Equal(t, row("name", "id"), employees[0])
	assert.Equal(t, row("Ann", ds.Employees[0].ID), employees[1])
	assert.Equal(t, row("project", "id"), f.get("Projects")[0])
}

func TestStore_SaveLoadIsIdempotent(t *testing.T) {
	f := legacySpreadsheet()
	store := NewStore(f, testNames)
	ctx := context.Background()

	first, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, first))
	snapshot := map[string][][]interface{}{
		"Logs":      f.get("Logs"),
		"Employees": f.get("Employees"),
		"Projects":  f.get("Projects"),
	}

	second, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, second))

	for sheet, values := range snapshot {
		assert.Equal(t, values, f.get(sheet), sheet)
	}
	assert.Equal(t, first.Rows[0].ID, second.Rows[0].ID, "ids persist across cycles")
}

func TestStore_LoadUnavailable(t *testing.T) {
	f := newFakeSpreadsheet()
	f.probeErr = errors.New("dial tcp: connection refused")

	_, err := NewStore(f, testNames).Load(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
}

func TestStore_LoadPartialFailureKeepsOtherSets(t *testing.T) {
	f := legacySpreadsheet()
	f.readErr["Employees"] = errors.New("quota exceeded")
	f.set("Projects", row("Title"), row("Apollo"))

	ds, err := NewStore(f, testNames).Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, ds.Rows, 2)
	assert.Empty(t, ds.Employees)
	assert.Empty(t, ds.Projects)
	require.Len(t, ds.Warnings, 2)
	assert.Contains(t, ds.Warnings[0], "Employees")
	assert.Contains(t, ds.Warnings[1], "missing column(s): project")
}

func TestStore_LoadMissingWorksheetIsEmpty(t *testing.T) {
	f := newFakeSpreadsheet()
	f.set("Logs", row("employee", "main_task", "sub_task"))

	ds, err := NewStore(f, testNames).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Warnings)
	assert.Empty(t, ds.Rows)
	assert.Empty(t, ds.Employees)
}

func TestStore_SaveAttemptsEverySetAndReportsAll(t *testing.T) {
	f := legacySpreadsheet()
	store := NewStore(f, testNames)
	ctx := context.Background()
	ds, err := store.Load(ctx)
	require.NoError(t, err)

	f.writeErr["Logs"] = errors.New("boom logs")
	f.writeErr["Projects"] = errors.New("boom projects")

	err = store.Save(ctx, ds)
	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, []string{"Logs", "Projects"}, saveErr.Failed)
	assert.Contains(t, err.Error(), "boom logs")
	assert.Contains(t, err.Error(), "boom projects")
	assert.Equal(t, []string{"Logs", "Employees", "Projects"}, f.writeCalls)
}

func TestStore_SaveCreatesMissingSheets(t *testing.T) {
	f := newFakeSpreadsheet()
	store := NewStore(f, testNames)

	ds := &model.Dataset{Employees: []model.Employee{{ID: "e1", Name: "Ann"}}}
	require.NoError(t, store.Save(context.Background(), ds))

	assert.Equal(t, [][]interface{}{headerRow(logsHeader)}, f.get("Logs"))
	assert.Equal(t, [][]interface{}{row("name", "id"), row("Ann", "e1")}, f.get("Employees"))
}

func TestStore_EnsureSheets(t *testing.T) {
	f := newFakeSpreadsheet()
	f.set("Employees")
	f.set("Projects", row("project", "id"), row("Apollo", "p1"))

	require.NoError(t, NewStore(f, testNames).EnsureSheets(context.Background()))

	assert.Equal(t, [][]interface{}{headerRow(logsHeader)}, f.get("Logs"))
	assert.Equal(t, [][]interface{}{headerRow(employeesHeader)}, f.get("Employees"))
	assert.Len(t, f.get("Projects"), 2, "populated sheets are left alone")
}

func TestStore_EnsureSheets_AssignsStableIDs(t *testing.T) {
	f := newFakeSpreadsheet()
	f.set("Logs",
		row("Employee", "Main_Task", "Sub_Task", "Start_Date", "End_Date", "Progress"),
		row("Ann", "Apollo", "Design", "2024-01-01", "2024-01-10", "40"),
	)
	f.set("Employees", row("Name"), row("Ann"))
	f.set("Projects", row("project", "id"), row("Apollo", "p1"))

	ctx := context.Background()
	store := NewStore(f, testNames)
	require.NoError(t, store.EnsureSheets(ctx))

	first, err := store.Load(ctx)
	require.NoError(t, err)
	second, err := store.Load(ctx)
	require.NoError(t, err)

	require.Len(t, first.Rows, 1)
	assert.NotEmpty(t, first.Rows[0].ID)
	assert.Equal(t, first.Rows[0].ID, second.Rows[0].ID)
	assert.Equal(t, first.Employees[0].ID, second.Employees[0].ID)
	assert.Equal(t, "p1", first.Projects[0].ID)
	assert.Equal(t, first.Employees[0].ID, first.Rows[0].EmployeeID)

	// once every entry has an id nothing is rewritten
	f.writeCalls = nil
	require.NoError(t, store.EnsureSheets(ctx))
	assert.Empty(t, f.writeCalls)
}

func TestSaveError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("%w: token expired", interfaces.ErrStoreUnavailable)
	err := &SaveError{Failed: []string{"Logs"}, Err: errors.Join(cause)}
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
}
