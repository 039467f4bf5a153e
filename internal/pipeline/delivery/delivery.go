// Package delivery holds the outbound workers: webhook POSTs and
// transactional mail. A worker never completes a job without handing an
// invocation log entry to the logger queue, even when the endpoint
// rejected the delivery.
package delivery

import (
	"context"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
)

// Queue is the slice of the substrate the delivery workers use.
type Queue interface {
	Add(ctx context.Context, job queue.Job) error
}

// MailSubject is the subject line for block notification emails.
const MailSubject = "Block Feed Data Notification"

func newLogJob(entry domain.InvocationLogEntry) queue.Job {
	return queue.Job{
		Queue:   queue.QueueBlockLogger,
		Name:    queue.JobLogBlock,
		Payload: []domain.InvocationLogEntry{entry},
	}
}
