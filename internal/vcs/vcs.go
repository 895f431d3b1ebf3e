// Package vcs records sync logs in the git repository that holds them.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Outcome is what a persistence attempt did.
type Outcome int

const (
	// Skipped means persistence is disabled.
	Skipped Outcome = iota
	// NoChanges means there was nothing to commit.
	NoChanges
	// Committed means a commit was created.
	Committed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case NoChanges:
		return "no_changes"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrOutsideRepo is returned when the log directory is not inside the
// repository worktree.
var ErrOutsideRepo = errors.New("vcs: log directory outside repository")

// Result describes one persistence attempt.
type Result struct {
	Outcome Outcome
	Hash    string
	Pushed  bool
}

// Persister commits a run's log.
type Persister interface {
	Persist(ctx context.Context, logDir, logName string) (Result, error)
}

// Options configures a Git persister.
type Options struct {
	// Repo is any path inside the repository; parents are searched for .git.
	Repo string

	AuthorName  string
	AuthorEmail string

	Remote string
	Push   bool

	// Username and Token authenticate pushes over HTTPS. An empty token
	// pushes without credentials.
	Username string
	Token    string

	// Now stamps commits. Defaults to time.Now.
	Now func() time.Time
}

// Git persists logs with go-git.
type Git struct {
	opts Options
}

var _ Persister = (*Git)(nil)

// NewGit creates a Git persister.
func NewGit(opts Options) *Git {
	if opts.Repo == "" {
		opts.Repo = "."
	}
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Git{opts: opts}
}

// Persist stages logDir/logName and commits it as "Add sync log <logName>".
// When the file is unchanged the result is NoChanges and no commit is made.
// Persist stages no other path, but like "git commit" the commit records
// the whole index, so changes the caller staged beforehand are included.
// With pushing enabled the commit is pushed; a remote that is already up
// to date is not an error.
func (g *Git) Persist(ctx context.Context, logDir, logName string) (Result, error) {
	repo, err := git.PlainOpenWithOptions(g.opts.Repo, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Result{}, fmt.Errorf("vcs: opening repository %s: %w", g.opts.Repo, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, fmt.Errorf("vcs: worktree: %w", err)
	}

	rel, err := relativeTo(wt.Filesystem.Root(), logDir)
	if err != nil {
		return Result{}, err
	}
	rel = path.Join(rel, logName)

	if err := wt.AddWithOptions(&git.AddOptions{Path: rel}); err != nil {
		return Result{}, fmt.Errorf("vcs: staging %s: %w", rel, err)
	}

	changed, err := stagedUnder(wt, rel)
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{Outcome: NoChanges}, nil
	}

	hash, err := wt.Commit("Add sync log "+logName, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.opts.AuthorName,
			Email: g.opts.AuthorEmail,
			When:  g.opts.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return Result{Outcome: NoChanges}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("vcs: committing: %w", err)
	}

	res := Result{Outcome: Committed, Hash: hash.String()}
	if !g.opts.Push {
		return res, nil
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: g.opts.Remote,
		Auth:       g.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return res, fmt.Errorf("vcs: pushing to %s: %w", g.opts.Remote, err)
	}
	res.Pushed = true
	return res, nil
}

func (g *Git) auth() transport.AuthMethod {
	if g.opts.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: g.opts.Username, Password: g.opts.Token}
}

// relativeTo returns dir relative to root in slash form.
func relativeTo(root, dir string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("vcs: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("vcs: %w", err)
	}
	if r, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = r
	}
	if d, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = d
	}

	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepo, dir)
	}
	return filepath.ToSlash(rel), nil
}

// stagedUnder reports whether the index differs from HEAD below prefix.
func stagedUnder(wt *git.Worktree, prefix string) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("vcs: status: %w", err)
	}
	for name, st := range status {
		if st.Staging == git.Unmodified || st.Staging == git.Untracked {
			continue
		}
		if name == prefix || strings.HasPrefix(name, prefix+"/") {
			return true, nil
		}
	}
	return false, nil
}
