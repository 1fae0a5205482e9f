package cart

// Status is the lifecycle state of a cart item.
//
// soon -> running -> pending -> completed, with one explicit reset edge
// pending -> soon when a PR is closed without being merged. soon -> running
// and running -> pending are driven by the external CLI through the shared
// state file; the remaining transitions are observed by the poller.
type Status string

const (
	StatusSoon      Status = "soon"
	StatusRunning   Status = "running"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ParseStatus maps a stored status string onto a Status. Unrecognized values
// default to soon so newer schema versions written by the CLI stay readable.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusSoon, StatusRunning, StatusPending, StatusCompleted:
		return Status(s)
	default:
		return StatusSoon
	}
}

// DisplayName is the human-readable form used by the CLI tables.
func (s Status) DisplayName() string {
	switch s {
	case StatusSoon:
		return "Soon"
	case StatusRunning:
		return "Running"
	case StatusPending:
		return "Pending"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}
