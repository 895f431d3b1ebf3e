package notion

import (
	"context"
	"fmt"
	"sync"
)

// fakeWorkspace is an in-memory Workspace.
type fakeWorkspace struct {
	mu sync.Mutex

	slaveTypes map[string]PropertyType
	master     []Page
	pageSize   int // server-side cap when the query sets none

	queries  []Query
	created  []map[string]Property
	statuses map[string]string

	typesErr  error
	queryErr  error
	createErr map[string]error // by the Name property
	selectErr map[string]error // by status value
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{
		slaveTypes: map[string]PropertyType{},
		statuses:   map[string]string{},
		createErr:  map[string]error{},
		selectErr:  map[string]error{},
	}
}

func (f *fakeWorkspace) PropertyTypes(_ context.Context, _ string) (map[string]PropertyType, error) {
	if f.typesErr != nil {
		return nil, f.typesErr
	}
	return f.slaveTypes, nil
}

func (f *fakeWorkspace) QueryPages(_ context.Context, _ string, q Query) (QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return QueryResult{}, f.queryErr
	}

	start := 0
	if q.StartCursor != "" {
		if _, err := fmt.Sscanf(q.StartCursor, "c%d", &start); err != nil {
			return QueryResult{}, err
		}
	}
	size := q.PageSize
	if size == 0 {
		size = f.pageSize
	}
	if size == 0 {
		size = len(f.master)
	}
	end := min(start+size, len(f.master))

	res := QueryResult{Pages: append([]Page(nil), f.master[start:end]...)}
	if end < len(f.master) {
		res.HasMore = true
		res.NextCursor = fmt.Sprintf("c%d", end)
	}
	return res, nil
}

func (f *fakeWorkspace) CreatePage(_ context.Context, _ string, props map[string]Property) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[Stringify(props["Name"].Value)]; err != nil {
		return "", err
	}
	f.created = append(f.created, props)
	return fmt.Sprintf("slave-%d", len(f.created)), nil
}

func (f *fakeWorkspace) SetSelect(_ context.Context, pageID, _, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.selectErr[value]; err != nil {
		return err
	}
	f.statuses[pageID] = value
	return nil
}

func page(id string, props map[string]any) Page {
	p := Page{ID: id, Properties: map[string]Property{}}
	for k, v := range props {
		p.Properties[k] = Property{Value: v}
	}
	return p
}
