package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// stubTransport answers Notion API calls from canned JSON keyed by
// "METHOD /path" and records every request.
type stubTransport struct {
	mu     sync.Mutex
	routes map[string]string
	reqs   []recordedRequest
}

func newStubTransport(routes map[string]string) *stubTransport {
	return &stubTransport{routes: routes}
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	s.mu.Lock()
	s.reqs = append(s.reqs, recordedRequest{Method: req.Method, Path: req.URL.Path, Body: body})
	resp, ok := s.routes[req.Method+" "+req.URL.Path]
	s.mu.Unlock()

	code := http.StatusOK
	if !ok {
		code = http.StatusNotFound
		resp = `{"object":"error","status":404,"code":"object_not_found","message":"not found"}`
	}
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(resp)),
		Request:    req,
	}, nil
}

// lastBody decodes the body of the last request to path.
func (s *stubTransport) lastBody(t *testing.T, method, path string) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.reqs) - 1; i >= 0; i-- {
		r := s.reqs[i]
		if r.Method == method && r.Path == path {
			var m map[string]any
			if err := json.Unmarshal(r.Body, &m); err != nil {
				t.Fatalf("decoding %s %s body: %v", method, path, err)
			}
			return m
		}
	}
	t.Fatalf("no %s %s request", method, path)
	return nil
}

func (s *stubTransport) count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reqs {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// dig walks nested maps and slices by key or index.
func dig(t *testing.T, v any, path ...any) any {
	t.Helper()
	for _, p := range path {
		switch k := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				t.Fatalf("at %q: %T is not an object", k, v)
			}
			v = m[k]
		case int:
			l, ok := v.([]any)
			if !ok || k >= len(l) {
				t.Fatalf("at [%d]: %v is not a long enough list", k, v)
			}
			v = l[k]
		}
	}
	return v
}

const masterPageJSON = `{
  "object": "list",
  "has_more": true,
  "next_cursor": "cursor-2",
  "results": [{
    "object": "page",
    "id": "page-1",
    "properties": {
      "Name": {"id": "title", "type": "title", "title": [{"type": "text", "text": {"content": "Hello"}, "plain_text": "Hello"}]},
      "Author": {"id": "a", "type": "rich_text", "rich_text": [{"type": "text", "text": {"content": "Ada "}, "plain_text": "Ada "}, {"type": "text", "text": {"content": "L"}, "plain_text": "L"}]},
      "Likes": {"id": "b", "type": "number", "number": 42},
      "Zero": {"id": "c", "type": "number", "number": 0},
      "Blank": {"id": "d", "type": "number", "number": null},
      "Niche": {"id": "e", "type": "select", "select": {"name": "Tech"}},
      "NoNiche": {"id": "f", "type": "select", "select": null},
      "Tags": {"id": "g", "type": "multi_select", "multi_select": [{"name": "a"}, {"name": "b"}]},
      "Day": {"id": "h", "type": "date", "date": {"start": "2024-05-06", "end": null}},
      "At": {"id": "i", "type": "date", "date": {"start": "2024-05-06T07:08:09Z", "end": null}},
      "NoDate": {"id": "j", "type": "date", "date": null},
      "URL": {"id": "k", "type": "url", "url": "https://example.com/x"},
      "Mail": {"id": "l", "type": "email", "email": "a@example.com"},
      "Phone": {"id": "m", "type": "phone_number", "phone_number": "+331"},
      "Done": {"id": "n", "type": "checkbox", "checkbox": true},
      "Label": {"id": "o", "type": "formula", "formula": {"type": "string", "string": "lbl"}},
      "Score": {"id": "p", "type": "formula", "formula": {"type": "number", "number": 1.5}},
      "NoScore": {"id": "q", "type": "formula", "formula": {"type": "number", "number": null}},
      "Flag": {"id": "r", "type": "formula", "formula": {"type": "boolean", "boolean": true}}
    }
  }]
}`

func TestClient_QueryPagesDecodes(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"POST /v1/databases/master/query": masterPageJSON,
	})
	c := newClient("secret_test", st)

	res, err := c.QueryPages(context.Background(), "master", Query{PageSize: 10})
	if err != nil {
		t.Fatalf("QueryPages() error = %v", err)
	}
	if !res.HasMore || res.NextCursor != "cursor-2" {
		t.Errorf("HasMore/NextCursor = %v/%q", res.HasMore, res.NextCursor)
	}
	if len(res.Pages) != 1 || res.Pages[0].ID != "page-1" {
		t.Fatalf("pages = %+v", res.Pages)
	}
	props := res.Pages[0].Properties

	tests := []struct {
		name string
		want Property
	}{
		{"Name", Property{Type: TypeTitle, Value: "Hello"}},
		{"Author", Property{Type: TypeRichText, Value: "Ada L"}},
		{"Likes", Property{Type: TypeNumber, Value: 42.0}},
		{"Zero", Property{Type: TypeNumber, Value: 0.0}},
		{"Blank", Property{Type: TypeNumber, Value: nil}},
		{"Niche", Property{Type: TypeSelect, Value: "Tech"}},
		{"NoNiche", Property{Type: TypeSelect, Value: nil}},
		{"Tags", Property{Type: TypeMultiSelect, Value: []string{"a", "b"}}},
		{"Day", Property{Type: TypeDate, Value: "2024-05-06"}},
		{"At", Property{Type: TypeDate, Value: "2024-05-06T07:08:09Z"}},
		{"NoDate", Property{Type: TypeDate, Value: nil}},
		{"URL", Property{Type: TypeURL, Value: "https://example.com/x"}},
		{"Mail", Property{Type: TypeEmail, Value: "a@example.com"}},
		{"Phone", Property{Type: TypePhoneNumber, Value: "+331"}},
		{"Done", Property{Type: TypeCheckbox, Value: true}},
		{"Label", Property{Type: TypeFormula, Value: "lbl"}},
		{"Score", Property{Type: TypeFormula, Value: 1.5}},
		{"NoScore", Property{Type: TypeFormula, Value: nil}},
		{"Flag", Property{Type: TypeFormula, Value: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := props[tt.name]
			if !ok {
				t.Fatalf("property %q missing", tt.name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decoded = %#v, want %#v", got, tt.want)
			}
		})
	}

	if !IsEmpty(props["Blank"].Value) || !IsEmpty(props["NoScore"].Value) {
		t.Error("null numbers must count as empty")
	}
	if IsEmpty(props["Zero"].Value) {
		t.Error("zero is a value")
	}
}

func TestClient_QueryPagesRequest(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"POST /v1/databases/master/query": `{"object":"list","results":[],"has_more":false,"next_cursor":null}`,
	})
	c := newClient("secret_test", st)

	_, err := c.QueryPages(context.Background(), "master", Query{
		Filters: []SelectFilter{
			{Property: "Sync Status", Equals: "Not Synced"},
			{Property: "Sync?", Equals: "True"},
		},
		PageSize:    25,
		StartCursor: "cursor-1",
	})
	if err != nil {
		t.Fatalf("QueryPages() error = %v", err)
	}

	body := st.lastBody(t, http.MethodPost, "/v1/databases/master/query")
	if got := dig(t, body, "page_size"); got != 25.0 {
		t.Errorf("page_size = %v, want 25", got)
	}
	if got := dig(t, body, "start_cursor"); got != "cursor-1" {
		t.Errorf("start_cursor = %v", got)
	}
	and, ok := dig(t, body, "filter", "and").([]any)
	if !ok || len(and) != 2 {
		t.Fatalf("filter.and = %v", dig(t, body, "filter"))
	}
	for i, want := range [][2]string{{"Sync Status", "Not Synced"}, {"Sync?", "True"}} {
		if got := dig(t, and, i, "property"); got != want[0] {
			t.Errorf("filter[%d].property = %v, want %q", i, got, want[0])
		}
		if got := dig(t, and, i, "select", "equals"); got != want[1] {
			t.Errorf("filter[%d].select.equals = %v, want %q", i, got, want[1])
		}
	}
}

func TestClient_QueryPagesNoFilter(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"POST /v1/databases/master/query": `{"object":"list","results":[],"has_more":false}`,
	})
	if _, err := newClient("k", st).QueryPages(context.Background(), "master", Query{}); err != nil {
		t.Fatal(err)
	}
	body := st.lastBody(t, http.MethodPost, "/v1/databases/master/query")
	for _, key := range []string{"page_size", "start_cursor"} {
		if v, ok := body[key]; ok && v != nil && v != "" && v != 0.0 {
			t.Errorf("%s = %v, want unset", key, v)
		}
	}
}

func TestClient_PropertyTypes(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"GET /v1/databases/slave": `{
  "object": "database",
  "id": "slave",
  "properties": {
    "Name": {"id": "title", "name": "Name", "type": "title", "title": {}},
    "Likes": {"id": "a", "name": "Likes", "type": "number", "number": {"format": "number"}},
    "Niche": {"id": "b", "name": "Niche", "type": "select", "select": {"options": []}},
    "Date": {"id": "c", "name": "Date", "type": "date", "date": {}},
    "Done": {"id": "d", "name": "Done", "type": "checkbox", "checkbox": {}}
  }
}`,
	})

	got, err := newClient("k", st).PropertyTypes(context.Background(), "slave")
	if err != nil {
		t.Fatalf("PropertyTypes() error = %v", err)
	}
	want := map[string]PropertyType{
		"Name":  TypeTitle,
		"Likes": TypeNumber,
		"Niche": TypeSelect,
		"Date":  TypeDate,
		"Done":  TypeCheckbox,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PropertyTypes() = %v, want %v", got, want)
	}
}

func TestClient_CreatePageEncodes(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"POST /v1/pages": `{"object":"page","id":"new-page","properties":{}}`,
	})
	c := newClient("k", st)

	id, err := c.CreatePage(context.Background(), "slave", map[string]Property{
		"Name":   {Type: TypeTitle, Value: "Hello"},
		"Author": {Type: TypeRichText, Value: "Ada"},
		"Likes":  {Type: TypeNumber, Value: 42.0},
		"Niche":  {Type: TypeSelect, Value: "Tech"},
		"Tags":   {Type: TypeMultiSelect, Value: []string{"a", "b"}},
		"Day":    {Type: TypeDate, Value: "2024-05-06"},
		"At":     {Type: TypeDate, Value: "2024-05-06T07:08:09+02:00"},
		"URL":    {Type: TypeURL, Value: "https://example.com/x"},
		"Done":   {Type: TypeCheckbox, Value: true},
	})
	if err != nil {
		t.Fatalf("CreatePage() error = %v", err)
	}
	if id != "new-page" {
		t.Errorf("id = %q", id)
	}

	body := st.lastBody(t, http.MethodPost, "/v1/pages")
	if got := dig(t, body, "parent", "database_id"); got != "slave" {
		t.Errorf("parent.database_id = %v", got)
	}
	props := dig(t, body, "properties")

	checks := []struct {
		path []any
		want any
	}{
		{[]any{"Name", "title", 0, "text", "content"}, "Hello"},
		{[]any{"Author", "rich_text", 0, "text", "content"}, "Ada"},
		{[]any{"Likes", "number"}, 42.0},
		{[]any{"Niche", "select", "name"}, "Tech"},
		{[]any{"Tags", "multi_select", 0, "name"}, "a"},
		{[]any{"Tags", "multi_select", 1, "name"}, "b"},
		{[]any{"URL", "url"}, "https://example.com/x"},
		{[]any{"Done", "checkbox"}, true},
	}
	for _, chk := range checks {
		if got := dig(t, props, chk.path...); got != chk.want {
			t.Errorf("%v = %v, want %v", chk.path, got, chk.want)
		}
	}

	dates := []struct {
		name string
		want time.Time
	}{
		{"Day", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)},
		{"At", time.Date(2024, 5, 6, 5, 8, 9, 0, time.UTC)},
	}
	for _, d := range dates {
		start, _ := dig(t, props, d.name, "date", "start").(string)
		got, err := parseDate(start)
		if err != nil {
			t.Fatalf("%s start %q: %v", d.name, start, err)
		}
		if !got.Equal(d.want) {
			t.Errorf("%s start = %v, want %v", d.name, got, d.want)
		}
	}
}

func TestClient_CreatePageUnsupported(t *testing.T) {
	t.Parallel()

	st := newStubTransport(nil)
	_, err := newClient("k", st).CreatePage(context.Background(), "slave", map[string]Property{
		"Mail": {Type: TypeEmail, Value: "a@example.com"},
	})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if st.count(http.MethodPost, "/v1/pages") != 0 {
		t.Error("no request should be sent")
	}
}

func TestClient_SetSelect(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"PATCH /v1/pages/page-1": `{"object":"page","id":"page-1","properties":{}}`,
	})
	if err := newClient("k", st).SetSelect(context.Background(), "page-1", "Sync Status", "Synced"); err != nil {
		t.Fatalf("SetSelect() error = %v", err)
	}
	body := st.lastBody(t, http.MethodPatch, "/v1/pages/page-1")
	if got := dig(t, body, "properties", "Sync Status", "select", "name"); got != "Synced" {
		t.Errorf("select.name = %v", got)
	}
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	_, err := newClient("k", newStubTransport(nil)).PropertyTypes(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

// A master page whose required number is null must be marked Failed, not
// copied as zero.
func TestSyncer_NullNumberThroughClient(t *testing.T) {
	t.Parallel()

	st := newStubTransport(map[string]string{
		"GET /v1/databases/slave": `{"object":"database","id":"slave","properties":{
  "Name": {"id": "title", "name": "Name", "type": "title", "title": {}},
  "Likes": {"id": "a", "name": "Likes", "type": "number", "number": {"format": "number"}}
}}`,
		"POST /v1/databases/master/query": `{"object":"list","has_more":false,"results":[{
  "object": "page",
  "id": "page-1",
  "properties": {
    "Name": {"id": "title", "type": "title", "title": [{"type": "text", "text": {"content": "Post"}, "plain_text": "Post"}]},
    "Likes": {"id": "a", "type": "number", "number": null}
  }
}]}`,
		"PATCH /v1/pages/page-1": `{"object":"page","id":"page-1","properties":{}}`,
	})

	opts := testOptions()
	opts.Properties = []string{"Name", "Likes"}
	var out bytes.Buffer
	sum, err := NewSyncer(newClient("k", st), opts).Run(context.Background(), &out)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Failed != 1 || sum.Synced != 0 {
		t.Errorf("summary = %+v, want 1 failed", sum)
	}
	if n := st.count(http.MethodPost, "/v1/pages"); n != 0 {
		t.Errorf("created %d slave pages, want 0", n)
	}
	body := st.lastBody(t, http.MethodPatch, "/v1/pages/page-1")
	if got := dig(t, body, "properties", "Sync Status", "select", "name"); got != "Failed" {
		t.Errorf("status = %v, want Failed", got)
	}
	if !strings.Contains(out.String(), "Missing or empty required properties: Likes") {
		t.Errorf("output = %q", out.String())
	}
}

func TestNullNumbers(t *testing.T) {
	t.Parallel()

	got, err := nullNumbers([]byte(`{"results":[
  {"id":"p1","properties":{
    "A":{"type":"number","number":null},
    "B":{"type":"number","number":3},
    "C":{"type":"formula","formula":{"type":"number","number":null}},
    "D":{"type":"formula","formula":{"type":"string","string":null}},
    "E":{"type":"rich_text","rich_text":[]}
  }},
  {"id":"p2","properties":{"A":{"type":"number","number":0}}}
]}`))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]map[string]bool{"p1": {"A": true, "C": true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("nullNumbers() = %v, want %v", got, want)
	}

	if got, err := nullNumbers(nil); err != nil || got != nil {
		t.Errorf("empty body = %v, %v", got, err)
	}
}

func TestFormatParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"2024-05-06", "2024-05-06"},
		{"2024-05-06T07:08:09Z", "2024-05-06T07:08:09Z"},
		{"2024-05-06T07:08:09+02:00", "2024-05-06T07:08:09+02:00"},
		{"2024-05-06T07:08:09.5Z", "2024-05-06T07:08:09Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tm, err := parseDate(tt.in)
			if err != nil {
				t.Fatalf("parseDate(%q) error = %v", tt.in, err)
			}
			if got := formatDate(tm); got != tt.want {
				t.Errorf("formatDate = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := parseDate("not a date"); err == nil {
		t.Error("expected error for garbage")
	}
}
