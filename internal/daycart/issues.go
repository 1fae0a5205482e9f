package daycart

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/daycart/internal/core/github"
)

const issuePageSize = 30

// issueLister is the slice of the GitHub client the issue service needs.
type issueLister interface {
	ListIssues(ctx context.Context, repo string, page int) ([]github.Issue, error)
	CreateIssue(ctx context.Context, repo, title, body string) (github.Issue, error)
	AssignIssue(ctx context.Context, repo string, number int, assignees []string) (github.Issue, error)
}

// titleGenerator is satisfied by the anthropic client.
type titleGenerator interface {
	GenerateTitle(ctx context.Context, rawInput, claudeMd, repoName string) (string, error)
}

// IssueService fetches and creates issues on behalf of the CLI commands,
// keeping the engine's per-repo issue cache fresh.
type IssueService struct {
	engine    *Engine
	client    issueLister
	anthropic titleGenerator
	log       zerolog.Logger
}

// NewIssueService creates an issue service. The anthropic client may be nil
// when no API key is configured; GenerateTitle then returns an error.
func NewIssueService(engine *Engine, client issueLister, titleGen titleGenerator, log zerolog.Logger) *IssueService {
	return &IssueService{
		engine:    engine,
		client:    client,
		anthropic: titleGen,
		log:       log.With().Str("component", "issues").Logger(),
	}
}

// RefreshIssues fetches up to three pages of open issues for a repo,
// filters out pull requests, and caches the result in the engine.
func (s *IssueService) RefreshIssues(ctx context.Context, repo string) ([]github.Issue, error) {
	var all []github.Issue
	for page := 1; page <= 3; page++ {
		pageIssues, err := s.client.ListIssues(ctx, repo, page)
		if err != nil {
			return nil, fmt.Errorf("list issues for %s: %w", repo, err)
		}
		all = append(all, pageIssues...)
		if len(pageIssues) < issuePageSize {
			break
		}
	}

	issues := all[:0]
	for _, issue := range all {
		if !issue.IsPullRequest() {
			issues = append(issues, issue)
		}
	}

	s.engine.SetIssues(repo, issues)
	return issues, nil
}

// CreateIssue opens a new issue.
func (s *IssueService) CreateIssue(ctx context.Context, repo, title, body string) (github.Issue, error) {
	issue, err := s.client.CreateIssue(ctx, repo, title, body)
	if err != nil {
		return github.Issue{}, fmt.Errorf("create issue in %s: %w", repo, err)
	}
	s.log.Info().Str("repo", repo).Int("number", issue.Number).Msg("issue created")
	return issue, nil
}

// AssignIssue adds assignees to an issue.
func (s *IssueService) AssignIssue(ctx context.Context, repo string, number int, assignees []string) error {
	if _, err := s.client.AssignIssue(ctx, repo, number, assignees); err != nil {
		return fmt.Errorf("assign issue %s#%d: %w", repo, number, err)
	}
	return nil
}

// GenerateTitle produces an issue title from raw developer notes, grounded
// on the repo's cached CLAUDE.md content when available.
func (s *IssueService) GenerateTitle(ctx context.Context, repo, rawInput string) (string, error) {
	if s.anthropic == nil {
		return "", fmt.Errorf("no Anthropic API key configured, run 'daycart auth login --anthropic'")
	}
	return s.anthropic.GenerateTitle(ctx, rawInput, s.engine.ClaudeMd(repo), repo)
}
