package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxPageSize is the largest page size the Notion API accepts.
const maxPageSize = 100

// Options configures a Syncer.
type Options struct {
	MasterID string
	SlaveID  string

	// Limit caps the number of pages synced. Zero means all.
	Limit int

	// Properties must all be present and non-empty on a master page.
	Properties []string

	StatusProperty string
	PendingValue   string
	SyncedValue    string
	FailedValue    string
	FlagProperty   string
	FlagValue      string
}

// Summary counts the outcome of one sync.
type Summary struct {
	Retrieved int
	Synced    int
	Failed    int
}

// MissingPropertiesError lists the required properties a page lacks.
type MissingPropertiesError struct {
	Names []string
}

func (e *MissingPropertiesError) Error() string {
	return "Missing or empty required properties: " + strings.Join(e.Names, ", ")
}

// Syncer copies pending master pages into the slave database.
// Progress is written as plain text lines to the output given to Run.
type Syncer struct {
	ws   Workspace
	opts Options
}

// NewSyncer creates a Syncer.
func NewSyncer(ws Workspace, opts Options) *Syncer {
	return &Syncer{ws: ws, opts: opts}
}

// Run performs one sync. Per-page failures are recorded on the page and
// do not stop the run; failing to read either database, or failing to
// record a page's status, does.
func (s *Syncer) Run(ctx context.Context, out io.Writer) (Summary, error) {
	var sum Summary

	slaveTypes, err := s.ws.PropertyTypes(ctx, s.opts.SlaveID)
	if err != nil {
		return sum, fmt.Errorf("notion: reading slave database: %w", err)
	}

	pages, err := s.pendingPages(ctx, out)
	if err != nil {
		return sum, err
	}
	sum.Retrieved = len(pages)

	if len(pages) == 0 {
		fmt.Fprintln(out, "No pages need to be synced.")
		return sum, nil
	}

	fmt.Fprintf(out, "Found %d pages to sync.\n", len(pages))

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("notion: sync interrupted: %w", err)
		}

		n := i + 1
		name := Stringify(page.Properties["Name"].Value)
		if name == "" {
			name = fmt.Sprintf("Page %d", n)
		}
		fmt.Fprintf(out, "Syncing page %d/%d: %s\n", n, len(pages), name)

		err := s.syncPage(ctx, page, slaveTypes)
		if err == nil {
			if serr := s.ws.SetSelect(ctx, page.ID, s.opts.StatusProperty, s.opts.SyncedValue); serr != nil {
				err = fmt.Errorf("marking page synced: %w", serr)
			}
		}
		if err == nil {
			sum.Synced++
			fmt.Fprintln(out, "Successfully synced page.")
			continue
		}

		sum.Failed++
		if err := s.markFailed(ctx, out, page, err); err != nil {
			return sum, err
		}
	}

	fmt.Fprintf(out, "Sync completed. %d pages processed.\n", len(pages))
	return sum, nil
}

// markFailed reports cause and flags the page as failed. A nil return
// means the run may continue.
func (s *Syncer) markFailed(ctx context.Context, out io.Writer, page Page, cause error) error {
	var missing *MissingPropertiesError
	if errors.As(cause, &missing) {
		fmt.Fprintf(out, "Failed to sync page - %s\n", missing.Error())
	} else {
		fmt.Fprintf(out, "Error syncing page: %v\n", cause)
	}

	if err := s.ws.SetSelect(ctx, page.ID, s.opts.StatusProperty, s.opts.FailedValue); err != nil {
		return fmt.Errorf("notion: marking page %s failed: %w", page.ID, err)
	}
	fmt.Fprintln(out, "Marked page as Failed and continuing with next page.")
	return nil
}

// pendingPages queries master pages awaiting sync, honoring the limit.
func (s *Syncer) pendingPages(ctx context.Context, out io.Writer) ([]Page, error) {
	q := Query{
		Filters: []SelectFilter{
			{Property: s.opts.StatusProperty, Equals: s.opts.PendingValue},
			{Property: s.opts.FlagProperty, Equals: s.opts.FlagValue},
		},
	}
	limit := s.opts.Limit
	if limit > 0 {
		q.PageSize = min(limit, maxPageSize)
	}

	res, err := s.ws.QueryPages(ctx, s.opts.MasterID, q)
	if err != nil {
		return nil, fmt.Errorf("notion: querying master database: %w", err)
	}
	pages := res.Pages

	for res.HasMore && (limit == 0 || len(pages) < limit) {
		q.StartCursor = res.NextCursor
		res, err = s.ws.QueryPages(ctx, s.opts.MasterID, q)
		if err != nil {
			return nil, fmt.Errorf("notion: querying master database: %w", err)
		}
		pages = append(pages, res.Pages...)
	}
	if limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}

	fmt.Fprintf(out, "Total pages retrieved: %d\n", len(pages))
	return pages, nil
}

// syncPage validates a master page and creates its copy in the slave.
func (s *Syncer) syncPage(ctx context.Context, page Page, slaveTypes map[string]PropertyType) error {
	props := make(map[string]Property, len(s.opts.Properties))
	var missing []string

	for _, name := range s.opts.Properties {
		prop, ok := page.Properties[name]
		if !ok || IsEmpty(prop.Value) {
			missing = append(missing, name)
			continue
		}

		target, ok := slaveTypes[name]
		if !ok {
			continue
		}
		built, err := BuildProperty(prop.Value, target)
		if errors.Is(err, ErrUnsupportedType) {
			continue
		}
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = built
	}

	if len(missing) > 0 {
		return &MissingPropertiesError{Names: missing}
	}

	if _, err := s.ws.CreatePage(ctx, s.opts.SlaveID, props); err != nil {
		return fmt.Errorf("creating slave page: %w", err)
	}
	return nil
}
