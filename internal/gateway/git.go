package gateway

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// DefaultGitURL is the base URL application repositories are cloned from.
const DefaultGitURL = "https://github.com"

// NoTag is reported for branches without any release tag.
const NoTag = "0.0.0"

var releaseTag = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// Repositories reads branches and tags of git repositories.
type Repositories interface {
	ListBranches(ctx context.Context, owner, name string) ([]string, error)
	DescribeBranch(ctx context.Context, owner, name, branch string) (string, int, error)
}

// GitGateway clones repositories into memory to inspect their history.
type GitGateway struct {
	baseURL string
	auth    transport.AuthMethod
	logger  *slog.Logger
}

// NewGitGateway creates a git gateway for repositories below baseURL. The token
// is optional and only used for private repositories.
func NewGitGateway(baseURL, token string, logger *slog.Logger) *GitGateway {
	g := &GitGateway{baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}
	if token != "" {
		g.auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	return g
}

func (g *GitGateway) url(owner, name string) string {
	return g.baseURL + "/" + owner + "/" + name
}

// ListBranches returns the branch names of a remote repository, sorted.
func (g *GitGateway) ListBranches(ctx context.Context, owner, name string) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{g.url(owner, name)},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: g.auth})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list references of %s/%s", owner, name)
	}

	var branches []string
	for _, ref := range refs {
		if ref.Name().IsBranch() {
			branches = append(branches, ref.Name().Short())
		}
	}
	sort.Strings(branches)
	return branches, nil
}

// DescribeBranch clones a single branch and returns its nearest release tag
// and the number of commits made since.
func (g *GitGateway) DescribeBranch(ctx context.Context, owner, name, branch string) (string, int, error) {
	g.logger.Debug("cloning branch", "repo", owner+"/"+name, "branch", branch)
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
		URL:           g.url(owner, name),
		Auth:          g.auth,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Tags:          git.AllTags,
	})
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to clone %s/%s@%s", owner, name, branch)
	}
	tag, commits, err := Describe(repo)
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to describe %s/%s@%s", owner, name, branch)
	}
	return tag, commits, nil
}

// Describe finds the most recent N.N.N tag reachable from HEAD and counts the
// commits reachable from HEAD but not from that tag. Without such a tag it
// returns NoTag and the total number of commits.
func Describe(repo *git.Repository) (string, int, error) {
	head, err := repo.Head()
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to resolve HEAD")
	}
	tags, err := releaseTags(repo)
	if err != nil {
		return "", 0, err
	}

	var tagged *plumbing.Hash
	var tagName string
	err = walk(repo, head.Hash(), func(c *object.Commit) error {
		if name, ok := tags[c.Hash]; ok {
			h := c.Hash
			tagged, tagName = &h, name
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	if tagged == nil {
		total := 0
		err := walk(repo, head.Hash(), func(*object.Commit) error {
			total++
			return nil
		})
		return NoTag, total, err
	}

	seen := map[plumbing.Hash]struct{}{}
	if err := walk(repo, *tagged, func(c *object.Commit) error {
		seen[c.Hash] = struct{}{}
		return nil
	}); err != nil {
		return "", 0, err
	}
	since := 0
	err = walk(repo, head.Hash(), func(c *object.Commit) error {
		if _, ok := seen[c.Hash]; !ok {
			since++
		}
		return nil
	})
	return tagName, since, err
}

// releaseTags maps commits to the release tag pointing at them. When a commit
// carries several release tags the highest version wins.
func releaseTags(repo *git.Repository) (map[plumbing.Hash]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	tags := map[plumbing.Hash]string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !releaseTag.MatchString(name) {
			return nil
		}
		target := ref.Hash()
		if annotated, err := repo.TagObject(target); err == nil {
			commit, err := annotated.Commit()
			if err != nil {
				return nil
			}
			target = commit.Hash
		} else if !errors.Is(err, plumbing.ErrObjectNotFound) {
			return errors.Wrapf(err, "failed to read tag %s", name)
		}
		if prev, ok := tags[target]; !ok || semver.Compare("v"+name, "v"+prev) > 0 {
			tags[target] = name
		}
		return nil
	})
	return tags, err
}

func walk(repo *git.Repository, from plumbing.Hash, fn func(*object.Commit) error) error {
	iter, err := repo.Log(&git.LogOptions{From: from, Order: git.LogOrderCommitterTime})
	if err != nil {
		return errors.Wrapf(err, "failed to read history from %s", from)
	}
	defer iter.Close()
	if err := iter.ForEach(fn); err != nil && !errors.Is(err, storer.ErrStop) {
		return errors.Wrap(err, "failed to walk history")
	}
	return nil
}
