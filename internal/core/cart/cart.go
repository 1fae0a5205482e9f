// Package cart holds the domain model for daycart's work items: a cart item
// is one GitHub issue selected for same-day work, tracked through a status
// lifecycle while an external coding-agent CLI works the issue.
package cart

import (
	"fmt"
	"strings"

	"github.com/colonyops/daycart/internal/core/github"
)

// Repo is the subset of repository data a cart item needs to hand work off
// to the agent CLI.
type Repo struct {
	FullName string `json:"fullName"`
	CloneURL string `json:"cloneURL"`
	SSHURL   string `json:"sshURL"`
}

// Name returns the repository name without the owner prefix.
func (r Repo) Name() string {
	if _, name, ok := strings.Cut(r.FullName, "/"); ok {
		return name
	}
	return r.FullName
}

// Owner returns the owner half of the full name.
func (r Repo) Owner() string {
	owner, _, _ := strings.Cut(r.FullName, "/")
	return owner
}

// Item is one unit of tracked work. Identity is (repo full name, issue
// number) and never changes after creation.
type Item struct {
	Repo        Repo
	IssueNumber int
	IssueTitle  string
	IssueBody   string

	Status   Status
	PRNumber int // 0 = no PR linked
	PRURL    string

	// Cached PR snapshot refreshed by the poller. View-only data used to
	// derive the pending sub-status; not persisted to the state file.
	PR                  *github.PullRequest
	HasChangesRequested bool
}

// NewItem constructs an item in the soon state from a repo and an issue.
func NewItem(repo Repo, issue github.Issue) Item {
	return Item{
		Repo:        repo,
		IssueNumber: issue.Number,
		IssueTitle:  issue.Title,
		IssueBody:   issue.Body,
		Status:      StatusSoon,
	}
}

// Key renders the stable identity key "{repo}#{number}".
func (i Item) Key() string {
	return Key(i.Repo.FullName, i.IssueNumber)
}

// Key builds the identity key for a repo full name and issue number.
func Key(repoFullName string, issueNumber int) string {
	return fmt.Sprintf("%s#%d", repoFullName, issueNumber)
}

// BranchName derives the working branch for the item from its issue title
// and number. Recomputed on demand, never stored as ground truth beyond the
// snapshot written to the state file for the CLI hand-off.
func (i Item) BranchName() string {
	return BranchName(i.IssueTitle, i.IssueNumber)
}

var hotfixKeywords = []string{"bug", "fix", "hotfix"}

// BranchName returns "HotFix/#{n}" when the title reads like a bug fix and
// "Feature/#{n}" otherwise.
func BranchName(title string, number int) string {
	lowered := strings.ToLower(title)
	for _, kw := range hotfixKeywords {
		if strings.Contains(lowered, kw) {
			return fmt.Sprintf("HotFix/#%d", number)
		}
	}
	return fmt.Sprintf("Feature/#%d", number)
}
