package output

import (
	"context"

	"signup-agent/internal/domain/entity"
)

// MailboxPort is the external mailbox provider consumed by the poller.
type MailboxPort interface {
	ListMessages(ctx context.Context, mailboxID string) ([]entity.MailMessage, error)
	GetMessage(ctx context.Context, mailboxID, messageID string) (*entity.MailBody, error)
}
