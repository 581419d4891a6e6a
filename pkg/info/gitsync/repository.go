package gitsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"casework-hq/auditexport/pkg/config"
)

// CommitInfo describes the checked out commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// SyncResult reports what a Sync changed.
type SyncResult struct {
	FromSHA string
	ToSHA   string

	// Cloned is set when Sync created the local checkout.
	Cloned bool

	// ReferenceChanged is set when the reference file differs between
	// FromSHA and ToSHA, or on the initial clone.
	ReferenceChanged bool
}

// Changed reports whether HEAD moved.
func (r *SyncResult) Changed() bool {
	return r.Cloned || r.FromSHA != r.ToSHA
}

// Repository is a local checkout of the reference data repository.
type Repository struct {
	config    *config.GitReferenceConfig
	file      string
	localPath string
	auth      AuthProvider
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository creates a repository manager. file is the reference file
// path relative to the repository root. Nothing is fetched until Sync.
func NewRepository(cfg *config.GitReferenceConfig, file string) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if file == "" || !filepath.IsLocal(file) {
		return nil, fmt.Errorf("reference file %q must be a relative path inside the repository", file)
	}

	auth, err := NewAuthProvider(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = config.DefaultGitLocalPath
	}

	return &Repository{
		config:    cfg,
		file:      filepath.Clean(file),
		localPath: localPath,
		auth:      auth,
		logger:    slog.Default().With("component", "reference.git"),
	}, nil
}

// ReferencePath returns the reference file inside the local checkout.
func (r *Repository) ReferencePath() string {
	return filepath.Join(r.localPath, r.file)
}

// Sync clones the repository on first use and pulls afterwards. An existing
// checkout at the local path is reused and pulled.
func (r *Repository) Sync(ctx context.Context) (*SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		cloned, err := r.openOrClone(ctx)
		if err != nil {
			return nil, err
		}
		if cloned {
			sha, err := r.headSHA()
			if err != nil {
				return nil, err
			}
			r.logger.Info("reference repository cloned",
				"repository", r.config.Repository,
				"branch", r.config.Branch,
				"sha", sha,
			)
			return &SyncResult{ToSHA: sha, Cloned: true, ReferenceChanged: true}, nil
		}
	}

	return r.pull(ctx)
}

// Head returns the checked out commit.
func (r *Repository) Head() (*CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Sync() first")
	}

	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    r.config.Branch,
	}, nil
}

func (r *Repository) openOrClone(ctx context.Context) (bool, error) {
	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return false, fmt.Errorf("failed to open existing checkout: %w", err)
		}
		r.repo = repo
		return false, nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return false, fmt.Errorf("failed to create checkout directory: %w", err)
	}

	auth, err := r.auth.Auth()
	if err != nil {
		return false, fmt.Errorf("failed to get auth: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(ctx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Depth:         r.config.Depth,
		Auth:          auth,
	})
	if err != nil {
		return false, fmt.Errorf("failed to clone repository: %w", err)
	}
	r.repo = repo
	return true, nil
}

func (r *Repository) pull(ctx context.Context) (*SyncResult, error) {
	fromSHA, err := r.headSHA()
	if err != nil {
		return nil, err
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := r.auth.Auth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    gogit.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	toSHA, err := r.headSHA()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{FromSHA: fromSHA, ToSHA: toSHA}
	if fromSHA != toSHA {
		changed, err := r.changedFiles(fromSHA, toSHA)
		if err != nil {
			return nil, fmt.Errorf("failed to diff %s..%s: %w", fromSHA, toSHA, err)
		}
		for _, name := range changed {
			if filepath.Clean(name) == r.file {
				result.ReferenceChanged = true
				break
			}
		}
		r.logger.Info("reference repository updated",
			"from_sha", fromSHA,
			"to_sha", toSHA,
			"changed_files", len(changed),
			"reference_changed", result.ReferenceChanged,
		)
	}
	return result, nil
}

func (r *Repository) headSHA() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// changedFiles lists paths that differ between two commits.
func (r *Repository) changedFiles(fromSHA, toSHA string) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(plumbing.NewHash(fromSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := r.repo.CommitObject(plumbing.NewHash(toSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else if change.From.Name != "" {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}
