package domain

import "fmt"

// DefaultBranch is the branch tracked for every application.
const DefaultBranch = "main"

// Project identifies a tracked GitHub repository.
type Project struct {
	Owner string
	Name  string
}

// FullName returns the owner/name form used by the GitHub API.
func (p Project) FullName() string {
	return fmt.Sprintf("%s/%s", p.Owner, p.Name)
}

// ApplicationBranch is one tracked branch of an application.
type ApplicationBranch struct {
	Name   string
	Branch string
	Owner  string
}

func (b ApplicationBranch) String() string {
	return fmt.Sprintf("%s/%s", b.Name, b.Branch)
}

// IsDefault reports whether the branch is the application's main branch.
func (b ApplicationBranch) IsDefault() bool {
	return b.Branch == DefaultBranch
}
