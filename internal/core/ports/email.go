package ports

import "context"

// EmailSender delivers report-ready notifications. Implementations must be
// safe to skip entirely: notification is an optimization, never a
// correctness requirement.
type EmailSender interface {
	SendReportReady(ctx context.Context, to, sprintName, reportURL string) error
}
