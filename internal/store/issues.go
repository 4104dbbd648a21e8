package store

import (
	"path"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// IssueCacheFile returns the issue cache file name of a project.
func IssueCacheFile(project string) string {
	return path.Join("issues", project+".yaml")
}

// ReadIssueCache loads the cached issue history of a project. A missing cache
// yields an empty one.
func (s *Store) ReadIssueCache(project string) (*domain.IssueCache, error) {
	cache := &domain.IssueCache{Project: project, Issues: map[int]domain.Issue{}}
	data, err := s.ReadFile(IssueCacheFile(project))
	if errors.Is(err, ErrNoData) {
		return cache, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cache); err != nil {
		return nil, errors.Wrapf(err, "could not decode issue cache of %s", project)
	}
	if cache.Issues == nil {
		cache.Issues = map[int]domain.Issue{}
	}
	return cache, nil
}

// WriteIssueCache replaces the issue cache of a project.
func (s *Store) WriteIssueCache(cache *domain.IssueCache) error {
	data, err := yaml.Marshal(cache)
	if err != nil {
		return errors.Wrapf(err, "could not encode issue cache of %s", cache.Project)
	}
	return s.WriteFile(IssueCacheFile(cache.Project), data)
}
