package github

// User is a GitHub account as returned by /user and embedded in issues.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url"`
}

// Label is an issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Repo is a repository as returned by the search and repos endpoints.
type Repo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Owner       RepoOwner `json:"owner"`
	HTMLURL     string    `json:"html_url"`
	CloneURL    string    `json:"clone_url"`
	SSHURL      string    `json:"ssh_url"`
	Description string    `json:"description"`
	Private     bool      `json:"private"`
}

// RepoOwner is the owner block embedded in a repo.
type RepoOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// RepoSearchResult is the envelope returned by /search/repositories.
type RepoSearchResult struct {
	TotalCount int    `json:"total_count"`
	Items      []Repo `json:"items"`
}

// IssueUser is the trimmed user block embedded in issues.
type IssueUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// PullRequestRef marks an issue object that is actually a pull request. The
// issues endpoint returns PRs too; this field is how they are told apart.
type PullRequestRef struct {
	URL string `json:"url,omitempty"`
}

// Issue is a GitHub issue.
type Issue struct {
	ID          int64           `json:"id"`
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Body        string          `json:"body,omitempty"`
	State       string          `json:"state"`
	Labels      []Label         `json:"labels"`
	HTMLURL     string          `json:"html_url"`
	User        IssueUser       `json:"user"`
	Assignees   []IssueUser     `json:"assignees"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	PullRequest *PullRequestRef `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether this issue object is a pull request.
func (i Issue) IsPullRequest() bool { return i.PullRequest != nil }

// IsClosed reports whether the issue state is closed.
func (i Issue) IsClosed() bool { return i.State == "closed" }

// IsAssigned reports whether the given login is among the assignees.
func (i Issue) IsAssigned(login string) bool {
	for _, a := range i.Assignees {
		if a.Login == login {
			return true
		}
	}
	return false
}

// Reviewer is a requested reviewer on a pull request.
type Reviewer struct {
	Login string `json:"login"`
}

// Team is a requested review team on a pull request.
type Team struct {
	Name string `json:"name"`
}

// PullRequest is the PR detail subset the sync engine cares about.
type PullRequest struct {
	Number             int        `json:"number"`
	State              string     `json:"state"`
	MergedAt           string     `json:"merged_at,omitempty"`
	Comments           int        `json:"comments"`
	ReviewComments     int        `json:"review_comments"`
	RequestedReviewers []Reviewer `json:"requested_reviewers,omitempty"`
	RequestedTeams     []Team     `json:"requested_teams,omitempty"`
}

// Merged reports whether the PR was merged.
func (p PullRequest) Merged() bool { return p.MergedAt != "" }

// ClosedWithoutMerge reports whether the PR was closed and never merged,
// which the engine treats as abandoned work.
func (p PullRequest) ClosedWithoutMerge() bool {
	return p.State == "closed" && !p.Merged()
}

// ReviewUser is the author of a PR review.
type ReviewUser struct {
	Login string `json:"login"`
	Type  string `json:"type"` // "User" or "Bot"
}

// IsBot reports whether the review author is a bot account.
func (u ReviewUser) IsBot() bool { return u.Type == "Bot" }

// Review is one submitted PR review.
type Review struct {
	ID          int64      `json:"id"`
	User        ReviewUser `json:"user"`
	State       string     `json:"state"` // APPROVED, CHANGES_REQUESTED, COMMENTED
	SubmittedAt string     `json:"submitted_at,omitempty"`
}

// ReviewStateChangesRequested is the review state GitHub reports when a
// reviewer blocks the PR.
const ReviewStateChangesRequested = "CHANGES_REQUESTED"
