package model

import "time"

// Dataset the application state: task rows plus both rosters
type Dataset struct {
	Rows      []TaskRow  `json:"tasks"`
	Employees []Employee `json:"employees"`
	Projects  []Project  `json:"projects"`
	Warnings  []string   `json:"warnings,omitempty"` // record sets that failed to load and were treated as empty
	LoadedAt  time.Time  `json:"loaded_at"`
}

// Clone returns a deep copy safe to mutate.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return &Dataset{}
	}
	out := &Dataset{
		Rows:      make([]TaskRow, len(d.Rows)),
		Employees: append([]Employee(nil), d.Employees...),
		Projects:  append([]Project(nil), d.Projects...),
		Warnings:  append([]string(nil), d.Warnings...),
		LoadedAt:  d.LoadedAt,
	}
	for i, row := range d.Rows {
		if row.Score != nil {
			score := *row.Score
			row.Score = &score
		}
		out.Rows[i] = row
	}
	return out
}

// EmployeeByName returns the roster entry named name.
func (d *Dataset) EmployeeByName(name string) (*Employee, bool) {
	for i := range d.Employees {
		if d.Employees[i].Name == name {
			return &d.Employees[i], true
		}
	}
	return nil, false
}

// EmployeeByID returns the roster entry with the given id.
func (d *Dataset) EmployeeByID(id string) (*Employee, bool) {
	if id == "" {
		return nil, false
	}
	for i := range d.Employees {
		if d.Employees[i].ID == id {
			return &d.Employees[i], true
		}
	}
	return nil, false
}

// ProjectByName returns the roster entry named name.
func (d *Dataset) ProjectByName(name string) (*Project, bool) {
	for i := range d.Projects {
		if d.Projects[i].Name == name {
			return &d.Projects[i], true
		}
	}
	return nil, false
}

// ProjectByID returns the roster entry with the given id.
func (d *Dataset) ProjectByID(id string) (*Project, bool) {
	if id == "" {
		return nil, false
	}
	for i := range d.Projects {
		if d.Projects[i].ID == id {
			return &d.Projects[i], true
		}
	}
	return nil, false
}

// RowIndex returns the position of the row with the given id, or -1.
func (d *Dataset) RowIndex(id string) int {
	for i := range d.Rows {
		if d.Rows[i].ID == id {
			return i
		}
	}
	return -1
}

// ResolveReferences links every row to its roster entries by name and, for
// rows already linked, refreshes the stored names from the roster.
func (d *Dataset) ResolveReferences() {
	for i := range d.Rows {
		row := &d.Rows[i]
		if emp, ok := d.EmployeeByID(row.EmployeeID); ok {
			row.Employee = emp.Name
		} else if emp, ok := d.EmployeeByName(row.Employee); ok {
			row.EmployeeID = emp.ID
		} else {
			row.EmployeeID = ""
		}
		if proj, ok := d.ProjectByID(row.ProjectID); ok {
			row.MainTask = proj.Name
		} else if proj, ok := d.ProjectByName(row.MainTask); ok {
			row.ProjectID = proj.ID
		} else {
			row.ProjectID = ""
		}
	}
}
