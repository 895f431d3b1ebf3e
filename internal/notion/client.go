package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// Client is a Workspace backed by the Notion REST API.
type Client struct {
	api *notionapi.Client
}

var _ Workspace = (*Client)(nil)

// NewClient creates a client authenticated with an integration token.
func NewClient(apiKey string) *Client {
	return newClient(apiKey, http.DefaultTransport)
}

func newClient(apiKey string, transport http.RoundTripper) *Client {
	hc := &http.Client{Transport: &captureTransport{base: transport}}
	return &Client{api: notionapi.NewClient(notionapi.Token(apiKey), notionapi.WithHTTPClient(hc))}
}

// PropertyTypes implements Workspace.
func (c *Client) PropertyTypes(ctx context.Context, databaseID string) (map[string]PropertyType, error) {
	db, err := c.api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, fmt.Errorf("notion: retrieving database: %w", err)
	}
	types := make(map[string]PropertyType, len(db.Properties))
	for name, cfg := range db.Properties {
		types[name] = PropertyType(cfg.GetType())
	}
	return types, nil
}

// QueryPages implements Workspace.
func (c *Client) QueryPages(ctx context.Context, databaseID string, q Query) (QueryResult, error) {
	req := &notionapi.DatabaseQueryRequest{
		PageSize:    q.PageSize,
		StartCursor: notionapi.Cursor(q.StartCursor),
	}
	if len(q.Filters) > 0 {
		and := make(notionapi.AndCompoundFilter, 0, len(q.Filters))
		for _, f := range q.Filters {
			and = append(and, &notionapi.PropertyFilter{
				Property: f.Property,
				Select:   &notionapi.SelectFilterCondition{Equals: f.Equals},
			})
		}
		req.Filter = and
	}

	var raw []byte
	resp, err := c.api.Database.Query(withBodySink(ctx, &raw), notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return QueryResult{}, fmt.Errorf("notion: querying database: %w", err)
	}
	// notionapi decodes numbers into float64, losing null.
	nulls, err := nullNumbers(raw)
	if err != nil {
		return QueryResult{}, fmt.Errorf("notion: decoding query response: %w", err)
	}

	res := QueryResult{
		Pages:      make([]Page, 0, len(resp.Results)),
		HasMore:    resp.HasMore,
		NextCursor: string(resp.NextCursor),
	}
	for _, p := range resp.Results {
		page := Page{ID: string(p.ID), Properties: make(map[string]Property, len(p.Properties))}
		for name, prop := range p.Properties {
			dp := decodeProperty(prop)
			if nulls[page.ID][name] {
				dp.Value = nil
			}
			page.Properties[name] = dp
		}
		res.Pages = append(res.Pages, page)
	}
	return res, nil
}

// CreatePage implements Workspace.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props map[string]Property) (string, error) {
	apiProps := make(notionapi.Properties, len(props))
	for name, p := range props {
		ap, err := encodeProperty(p)
		if err != nil {
			return "", fmt.Errorf("notion: property %q: %w", name, err)
		}
		apiProps[name] = ap
	}

	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: apiProps,
	})
	if err != nil {
		return "", fmt.Errorf("notion: creating page: %w", err)
	}
	return string(page.ID), nil
}

// SetSelect implements Workspace.
func (c *Client) SetSelect(ctx context.Context, pageID, property, value string) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			property: notionapi.SelectProperty{Select: notionapi.Option{Name: value}},
		},
	})
	if err != nil {
		return fmt.Errorf("notion: updating page: %w", err)
	}
	return nil
}

func decodeProperty(prop notionapi.Property) Property {
	switch v := prop.(type) {
	case *notionapi.TitleProperty:
		return Property{Type: TypeTitle, Value: plainText(v.Title)}
	case *notionapi.RichTextProperty:
		return Property{Type: TypeRichText, Value: plainText(v.RichText)}
	case *notionapi.NumberProperty:
		return Property{Type: TypeNumber, Value: v.Number}
	case *notionapi.SelectProperty:
		if v.Select.Name == "" {
			return Property{Type: TypeSelect}
		}
		return Property{Type: TypeSelect, Value: v.Select.Name}
	case *notionapi.MultiSelectProperty:
		names := make([]string, 0, len(v.MultiSelect))
		for _, o := range v.MultiSelect {
			names = append(names, o.Name)
		}
		return Property{Type: TypeMultiSelect, Value: names}
	case *notionapi.DateProperty:
		return Property{Type: TypeDate, Value: dateStart(v.Date)}
	case *notionapi.URLProperty:
		return Property{Type: TypeURL, Value: v.URL}
	case *notionapi.EmailProperty:
		return Property{Type: TypeEmail, Value: v.Email}
	case *notionapi.PhoneNumberProperty:
		return Property{Type: TypePhoneNumber, Value: v.PhoneNumber}
	case *notionapi.CheckboxProperty:
		return Property{Type: TypeCheckbox, Value: v.Checkbox}
	case *notionapi.FormulaProperty:
		f := v.Formula
		switch string(f.Type) {
		case "string":
			return Property{Type: TypeFormula, Value: f.String}
		case "number":
			return Property{Type: TypeFormula, Value: f.Number}
		case "boolean":
			return Property{Type: TypeFormula, Value: f.Boolean}
		case "date":
			return Property{Type: TypeFormula, Value: dateStart(f.Date)}
		}
		return Property{Type: TypeFormula}
	}
	return Property{Type: PropertyType(prop.GetType())}
}

func encodeProperty(p Property) (notionapi.Property, error) {
	switch p.Type {
	case TypeTitle:
		return notionapi.TitleProperty{Title: richText(Stringify(p.Value))}, nil
	case TypeRichText:
		return notionapi.RichTextProperty{RichText: richText(Stringify(p.Value))}, nil
	case TypeNumber:
		f, _ := p.Value.(float64)
		return notionapi.NumberProperty{Number: f}, nil
	case TypeSelect:
		return notionapi.SelectProperty{Select: notionapi.Option{Name: Stringify(p.Value)}}, nil
	case TypeMultiSelect:
		names, _ := p.Value.([]string)
		opts := make([]notionapi.Option, 0, len(names))
		for _, n := range names {
			opts = append(opts, notionapi.Option{Name: n})
		}
		return notionapi.MultiSelectProperty{MultiSelect: opts}, nil
	case TypeDate:
		t, err := parseDate(Stringify(p.Value))
		if err != nil {
			return nil, err
		}
		start := notionapi.Date(t)
		return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}, nil
	case TypeURL:
		return notionapi.URLProperty{URL: Stringify(p.Value)}, nil
	case TypeCheckbox:
		b, _ := p.Value.(bool)
		return notionapi.CheckboxProperty{Checkbox: b}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, p.Type)
}

func plainText(items []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range items {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type:      notionapi.ObjectTypeText,
		Text:      &notionapi.Text{Content: s},
		PlainText: s,
	}}
}

func dateStart(d *notionapi.DateObject) any {
	if d == nil || d.Start == nil {
		return nil
	}
	return formatDate(time.Time(*d.Start))
}

// formatDate renders date-only values without a clock, like the API does.
func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("notion: %q is not a date", s)
}

type bodySinkKey struct{}

// withBodySink asks captureTransport to copy the response body into sink.
func withBodySink(ctx context.Context, sink *[]byte) context.Context {
	return context.WithValue(ctx, bodySinkKey{}, sink)
}

// captureTransport copies response bodies into the sink carried by the
// request context, if any. Retried requests overwrite the sink, so it
// holds the body notionapi finally decoded.
type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	sink, ok := req.Context().Value(bodySinkKey{}).(*[]byte)
	if err != nil || !ok || resp.Body == nil {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	*sink = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// rawNumber reads just enough of a page property to tell a null number
// from zero.
type rawNumber struct {
	Type    string          `json:"type"`
	Number  json.RawMessage `json:"number"`
	Formula struct {
		Type   string          `json:"type"`
		Number json.RawMessage `json:"number"`
	} `json:"formula"`
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// nullNumbers returns, per page ID, the number and number-formula
// properties whose value is null in a query response body.
func nullNumbers(body []byte) (map[string]map[string]bool, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var resp struct {
		Results []struct {
			ID         string               `json:"id"`
			Properties map[string]rawNumber `json:"properties"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]map[string]bool)
	for _, page := range resp.Results {
		for name, p := range page.Properties {
			null := false
			switch p.Type {
			case string(TypeNumber):
				null = isNull(p.Number)
			case string(TypeFormula):
				null = p.Formula.Type == "number" && isNull(p.Formula.Number)
			}
			if !null {
				continue
			}
			if out[page.ID] == nil {
				out[page.ID] = make(map[string]bool)
			}
			out[page.ID][name] = true
		}
	}
	return out, nil
}
