// Package gitrepo keeps the revision history of every tenant's theme
// configuration in a git repository of its own.
package gitrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"helpcenter/api/internal/theme"
)

const (
	snapshotFile = "theme.json"
	mainBranch   = "main"
)

var (
	// ErrNoHistory is returned for tenants that never saved a theme.
	ErrNoHistory       = errors.New("no theme history")
	ErrUnknownRevision = errors.New("unknown theme revision")
)

// Snapshot is the file committed on every save.
type Snapshot struct {
	Config   theme.Config   `json:"config"`
	Branding theme.Branding `json:"branding"`
}

type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	now     func() time.Time
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits snap on the tenant's main branch. Saving an identical
// snapshot returns the current head with changed=false.
func (s *Service) Record(tenantID string, snap Snapshot, author, message string) (Revision, bool, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(tenantID)
	if err != nil {
		return Revision{}, false, err
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Revision{}, false, fmt.Errorf("marshal snapshot: %w", err)
	}
	payload = append(payload, '\n')

	if head, err := headCommit(repo); err == nil {
		current, err := readFile(head)
		if err != nil {
			return Revision{}, false, err
		}
		if bytes.Equal(current, payload) {
			return toRevision(head), false, nil
		}
	} else if !errors.Is(err, ErrNoHistory) {
		return Revision{}, false, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, false, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), snapshotFile), payload, 0o644); err != nil {
		return Revision{}, false, fmt.Errorf("write %s: %w", snapshotFile, err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return Revision{}, false, fmt.Errorf("git add snapshot: %w", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@themes.helpcenter.local", sanitizeEmail(author)),
			When:  s.now(),
		},
	})
	if err != nil {
		return Revision{}, false, fmt.Errorf("commit snapshot: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), true, nil
}

// History lists revisions newest first. limit <= 0 means all.
func (s *Service) History(tenantID string, limit int) ([]Revision, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(tenantID)
	if err != nil {
		return nil, err
	}
	head, err := headCommit(repo)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(c *object.Commit) error {
		items = append(items, toRevision(c))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// At returns the snapshot stored by the revision hash (short or full).
func (s *Service) At(tenantID, hash string) (Snapshot, Revision, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(tenantID)
	if err != nil {
		return Snapshot{}, Revision{}, err
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return Snapshot{}, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return Snapshot{}, Revision{}, fmt.Errorf("%w: %s", ErrUnknownRevision, hash)
	}
	if err != nil {
		return Snapshot{}, Revision{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	raw, err := readFile(commitObj)
	if err != nil {
		return Snapshot{}, Revision{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, Revision{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, toRevision(commitObj), nil
}

func (s *Service) repoPath(tenantID string) string {
	return filepath.Join(s.baseDir, tenantID)
}

func (s *Service) open(tenantID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(tenantID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(tenantID string) (*git.Repository, error) {
	repo, err := s.open(tenantID)
	if !errors.Is(err, ErrNoHistory) {
		return repo, err
	}
	path := s.repoPath(tenantID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", mainBranch, err)
	}
	return repo, nil
}

func (s *Service) tenantLock(tenantID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tenantID] = lock
	}
	return lock
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", mainBranch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load head commit: %w", err)
	}
	return commitObj, nil
}

func readFile(commitObj *object.Commit) ([]byte, error) {
	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", snapshotFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrUnknownRevision, hash)
	}
	return *resolved, nil
}

func toRevision(c *object.Commit) Revision {
	return Revision{
		Hash:      c.Hash.String()[:7],
		Message:   c.Message,
		Author:    c.Author.Name,
		CreatedAt: c.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

// Change is one difference between two configurations.
type Change struct {
	Kind      string `json:"kind"`
	SectionID string `json:"sectionId,omitempty"`
	Before    string `json:"before,omitempty"`
	After     string `json:"after,omitempty"`
}

// Diff lists what changed from one snapshot to the next, sorted by kind then section.
func Diff(from, to Snapshot) []Change {
	changes := make([]Change, 0)
	if from.Config.Theme != to.Config.Theme {
		changes = append(changes, Change{Kind: "theme", Before: from.Config.Theme, After: to.Config.Theme})
	}
	if from.Config.Styles != to.Config.Styles {
		changes = append(changes, Change{Kind: "styles"})
	}
	if from.Branding != to.Branding {
		changes = append(changes, Change{Kind: "branding", Before: from.Branding.HeaderText, After: to.Branding.HeaderText})
	}
	for id, before := range from.Config.Sections {
		after, ok := to.Config.Sections[id]
		if !ok {
			changes = append(changes, Change{Kind: "removed", SectionID: id})
			continue
		}
		if before.Order != after.Order {
			changes = append(changes, Change{Kind: "moved", SectionID: id, Before: fmt.Sprint(before.Order), After: fmt.Sprint(after.Order)})
		}
		if before.Visible != after.Visible {
			changes = append(changes, Change{Kind: "visibility", SectionID: id, Before: fmt.Sprint(before.Visible), After: fmt.Sprint(after.Visible)})
		}
	}
	for id := range to.Config.Sections {
		if _, ok := from.Config.Sections[id]; !ok {
			changes = append(changes, Change{Kind: "added", SectionID: id})
		}
	}
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Kind != changes[j].Kind {
			return changes[i].Kind < changes[j].Kind
		}
		return changes[i].SectionID < changes[j].SectionID
	})
	return changes
}
