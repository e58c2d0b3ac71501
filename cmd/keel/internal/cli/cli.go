package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/keel-vcs/keel/pkg/cli"
	"github.com/keel-vcs/keel/pkg/keel/repo"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// Config holds dependencies for CLI handlers
type Config struct {
	RepoFactory func() (*repo.Repository, error)
	Identity    string
}

// DefaultRepoFactory opens the repository enclosing the current
// working directory.
func DefaultRepoFactory() (*repo.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, err := cli.ResolveRoot(cwd)
	if err != nil {
		return nil, err
	}
	return repo.Open(root)
}

// DefaultIdentity returns the committer identity: KEEL_AUTHOR when
// set, a fixed placeholder otherwise. The core treats it as opaque.
func DefaultIdentity() string {
	if id := os.Getenv("KEEL_AUTHOR"); id != "" {
		return id
	}
	return "Keel User <keel@localhost>"
}

// HandleInit scaffolds a repository in dir (default: cwd).
func HandleInit(w io.Writer, dir string) error {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = cwd
	}
	r, err := repo.Init(dir)
	if err != nil {
		return err
	}
	defer r.Close()
	fmt.Fprintf(w, "Initialized empty keel repository in %s\n", r.MetaDir)
	return nil
}

// HandleAdd stages the named paths.
func HandleAdd(w io.Writer, cfg Config, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("nothing specified, nothing added")
	}
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Add(paths)
}

// HandleCommit records the staged state.
func HandleCommit(w io.Writer, cfg Config, message string) error {
	if message == "" {
		return fmt.Errorf("empty commit message")
	}
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	d, err := r.Commit(message, cfg.Identity)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "[%s %s] %s\n", r.CurrentBranch(), short(d), message)
	return nil
}

// HandleLog prints the first-parent history of the current branch.
func HandleLog(w io.Writer, cfg Config, limit int) error {
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	entries, err := r.Log(limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(w, "commit %s\n", e.Digest)
		fmt.Fprintf(w, "Author: %s\n", e.Commit.Author)
		fmt.Fprintf(w, "Date:   %s\n", time.Unix(e.Commit.AuthorTime, 0).Format(time.RFC1123Z))
		fmt.Fprintf(w, "\n    %s\n\n", e.Commit.Message)
	}
	return nil
}

// HandleBranch lists branches, or creates one when name is non-empty.
func HandleBranch(w io.Writer, cfg Config, name string) error {
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	if name != "" {
		return r.CreateBranch(name)
	}

	branches, err := r.Branches()
	if err != nil {
		return err
	}
	for _, b := range branches {
		marker := "  "
		if b == r.CurrentBranch() {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s\n", marker, b)
	}
	return nil
}

// HandleCheckout switches to the named branch.
func HandleCheckout(w io.Writer, cfg Config, name string) error {
	if name == "" {
		return fmt.Errorf("branch name required")
	}
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Checkout(name); err != nil {
		return err
	}
	fmt.Fprintf(w, "Switched to branch '%s'\n", name)
	return nil
}

// HandleMerge merges the named branch into the current one.
func HandleMerge(w io.Writer, cfg Config, name string) error {
	if name == "" {
		return fmt.Errorf("branch name required")
	}
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	d, err := r.Merge(name, cfg.Identity)
	if err != nil {
		var conflict *types.ConflictError
		switch {
		case errors.Is(err, types.ErrAlreadyUpToDate):
			fmt.Fprintln(w, "Already up to date.")
			return nil
		case errors.As(err, &conflict):
			for _, p := range conflict.Paths {
				fmt.Fprintf(w, "CONFLICT (content): %s\n", p)
			}
			fmt.Fprintln(w, "Automatic merge failed; fix conflicts and commit the result.")
			return err
		default:
			return err
		}
	}
	fmt.Fprintf(w, "Merge made commit %s.\n", short(d))
	return nil
}

// HandleStatus prints the index vs working-tree comparison.
func HandleStatus(w io.Writer, cfg Config) error {
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	entries, err := r.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "On branch %s\n", r.CurrentBranch())
	if len(entries) == 0 {
		fmt.Fprintln(w, "nothing to commit, working tree clean")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-10s %s\n", e.State.String()+":", e.Path)
	}
	return nil
}

// HandleStats emits cache and operation metrics as JSON.
func HandleStats(w io.Writer, cfg Config) error {
	r, err := cfg.RepoFactory()
	if err != nil {
		return err
	}
	defer r.Close()

	st := r.Stats()
	out := map[string]any{
		"cache": map[string]any{
			"hits":      st.Cache.Hits,
			"misses":    st.Cache.Misses,
			"evictions": st.Cache.Evictions,
			"size":      st.Cache.SizeBytes,
			"items":     st.Cache.Items,
		},
		"engine": st.Engine,
	}
	return json.NewEncoder(w).Encode(out)
}

func short(d types.Digest) string {
	if len(d) < 7 {
		return string(d)
	}
	return string(d[:7])
}
