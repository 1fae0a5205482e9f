package cart

// SubStatus refines the pending status from the cached PR snapshot. It is
// derived on every read and never persisted.
type SubStatus string

const (
	SubStatusJustCreated       SubStatus = "justCreated"
	SubStatusAIReviewCompleted SubStatus = "aiReviewCompleted"
	SubStatusReviewerAssigned  SubStatus = "reviewerAssigned"
	SubStatusChangesRequested  SubStatus = "changesRequested"
)

// DisplayName is the label shown next to pending items.
func (s SubStatus) DisplayName() string {
	switch s {
	case SubStatusJustCreated:
		return "PR Just Created"
	case SubStatusAIReviewCompleted:
		return "AI Review Completed"
	case SubStatusReviewerAssigned:
		return "Reviewer Assigned"
	case SubStatusChangesRequested:
		return "Changes Requested"
	default:
		return string(s)
	}
}

// PendingSubStatus derives the sub-status for a pending item. Priority order,
// highest first: changesRequested, reviewerAssigned, aiReviewCompleted,
// justCreated. Returns justCreated when no PR snapshot is cached yet.
func (i Item) PendingSubStatus() SubStatus {
	if i.HasChangesRequested {
		return SubStatusChangesRequested
	}
	if i.PR == nil {
		return SubStatusJustCreated
	}
	if len(i.PR.RequestedReviewers) > 0 || len(i.PR.RequestedTeams) > 0 {
		return SubStatusReviewerAssigned
	}
	if i.PR.Comments > 0 || i.PR.ReviewComments > 0 {
		return SubStatusAIReviewCompleted
	}
	return SubStatusJustCreated
}
