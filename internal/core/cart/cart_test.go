package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colonyops/daycart/internal/core/github"
)

func TestBranchName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		title  string
		number int
		want   string
	}{
		{name: "feature", title: "Add CSV export", number: 9, want: "Feature/#9"},
		{name: "fix keyword", title: "Fix crash on launch", number: 9, want: "HotFix/#9"},
		{name: "bug keyword", title: "Bug: login fails on empty password", number: 7, want: "HotFix/#7"},
		{name: "hotfix keyword", title: "HotFix production timeout", number: 3, want: "HotFix/#3"},
		{name: "case insensitive", title: "BUGFIX for parser", number: 12, want: "HotFix/#12"},
		{name: "keyword inside word", title: "Prefix all routes", number: 5, want: "HotFix/#5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BranchName(tt.title, tt.number))
		})
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	item := NewItem(
		Repo{FullName: "owner/repo"},
		github.Issue{Number: 42, Title: "Add dark mode"},
	)

	assert.Equal(t, "owner/repo#42", item.Key())
	assert.Equal(t, "owner/repo#42", Key("owner/repo", 42))
	assert.Equal(t, StatusSoon, item.Status)
}

func TestRepoNameOwner(t *testing.T) {
	t.Parallel()

	repo := Repo{FullName: "acme/widgets"}
	assert.Equal(t, "widgets", repo.Name())
	assert.Equal(t, "acme", repo.Owner())
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Status
	}{
		{in: "soon", want: StatusSoon},
		{in: "running", want: StatusRunning},
		{in: "pending", want: StatusPending},
		{in: "completed", want: StatusCompleted},
		{in: "", want: StatusSoon},
		{in: "archived", want: StatusSoon}, // future schema value
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus(tt.in), "input %q", tt.in)
	}
}

func TestPendingSubStatusPriority(t *testing.T) {
	t.Parallel()

	t.Run("changes requested wins over comments", func(t *testing.T) {
		t.Parallel()
		item := Item{
			Status:              StatusPending,
			PR:                  &github.PullRequest{Comments: 2, ReviewComments: 0},
			HasChangesRequested: true,
		}
		assert.Equal(t, SubStatusChangesRequested, item.PendingSubStatus())
	})

	t.Run("reviewer assigned wins over comments", func(t *testing.T) {
		t.Parallel()
		item := Item{
			Status: StatusPending,
			PR: &github.PullRequest{
				Comments:           3,
				RequestedReviewers: []github.Reviewer{{Login: "alice"}},
			},
		}
		assert.Equal(t, SubStatusReviewerAssigned, item.PendingSubStatus())
	})

	t.Run("requested team counts as reviewer assigned", func(t *testing.T) {
		t.Parallel()
		item := Item{
			Status: StatusPending,
			PR:     &github.PullRequest{RequestedTeams: []github.Team{{Name: "platform"}}},
		}
		assert.Equal(t, SubStatusReviewerAssigned, item.PendingSubStatus())
	})

	t.Run("comments alone mean ai review completed", func(t *testing.T) {
		t.Parallel()
		item := Item{
			Status: StatusPending,
			PR:     &github.PullRequest{ReviewComments: 1},
		}
		assert.Equal(t, SubStatusAIReviewCompleted, item.PendingSubStatus())
	})

	t.Run("fresh PR defaults to just created", func(t *testing.T) {
		t.Parallel()
		item := Item{Status: StatusPending, PR: &github.PullRequest{}}
		assert.Equal(t, SubStatusJustCreated, item.PendingSubStatus())
	})

	t.Run("no cached snapshot defaults to just created", func(t *testing.T) {
		t.Parallel()
		item := Item{Status: StatusPending}
		assert.Equal(t, SubStatusJustCreated, item.PendingSubStatus())
	})
}
