package sheets

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeSpreadsheet in-memory ValuesAPI
type fakeSpreadsheet struct {
	mu         sync.Mutex
	sheets     map[string][][]interface{}
	probeErr   error
	readErr    map[string]error
	writeErr   map[string]error
	writeCalls []string
}

func newFakeSpreadsheet() *fakeSpreadsheet {
	return &fakeSpreadsheet{
		sheets:   make(map[string][][]interface{}),
		readErr:  make(map[string]error),
		writeErr: make(map[string]error),
	}
}

func (f *fakeSpreadsheet) SheetTitles(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	titles := make([]string, 0, len(f.sheets))
	for t := range f.sheets {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles, nil
}

func (f *fakeSpreadsheet) Read(ctx context.Context, sheet string) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[sheet]; err != nil {
		return nil, err
	}
	values, ok := f.sheets[sheet]
	if !ok {
		return nil, errors.New("unable to parse range")
	}
	return copyValues(values), nil
}

func (f *fakeSpreadsheet) Overwrite(ctx context.Context, sheet string, values [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls = append(f.writeCalls, sheet)
	if err := f.writeErr[sheet]; err != nil {
		return err
	}
	if _, ok := f.sheets[sheet]; !ok {
		return errors.New("unable to parse range")
	}
	f.sheets[sheet] = copyValues(values)
	return nil
}

func (f *fakeSpreadsheet) AddSheet(ctx context.Context, sheet string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sheets[sheet]; ok {
		return errors.New("sheet already exists")
	}
	f.sheets[sheet] = nil
	return nil
}

func (f *fakeSpreadsheet) set(sheet string, values ...[]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets[sheet] = values
}

func (f *fakeSpreadsheet) get(sheet string) [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyValues(f.sheets[sheet])
}

func copyValues(values [][]interface{}) [][]interface{} {
	if values == nil {
		return nil
	}
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = append([]interface{}(nil), row...)
	}
	return out
}

func row(cells ...interface{}) []interface{} {
	return cells
}
