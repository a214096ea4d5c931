// Package worker provides a NATS worker that feeds TTS jobs to the handler.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/handler"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// handleMessageMargin is added to the synthesis timeout so the handler can
// report a TimeoutError before the message context expires.
const handleMessageMargin = 15 * time.Second

// drainPollInterval bounds each wait for a buffered job while draining.
const drainPollInterval = 100 * time.Millisecond

const (
	errInvalidEnvelope  = "invalid job envelope"
	hintInvalidEnvelope = "send a JSON object of the form {\"id\": ..., \"input\": {\"text\": ...}}"
)

// ErrSubjectEmpty indicates that the worker has no subject to listen on.
var ErrSubjectEmpty = errors.New("job subject cannot be empty")

// JobHandler runs one job input to completion.
type JobHandler interface {
	Handle(ctx context.Context, raw map[string]any) handler.Response
	Timeout() time.Duration
}

// Job is the envelope a caller publishes on the job subject.
type Job struct {
	ID     string             `json:"id,omitempty"`
	Header events.EventHeader `json:"header"`
	Input  map[string]any     `json:"input"`
}

// Result is the reply to a Job.
type Result struct {
	ID     string             `json:"id"`
	Header events.EventHeader `json:"header"`
	Output handler.Response   `json:"output"`
}

// Options configure the subscription.
type Options struct {
	Subject       string
	Queue         string
	ResultSubject string
}

// NatsWorker listens for TTS jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	opts           Options
	handler        JobHandler
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	opts Options,
	jobHandler JobHandler,
	log *logger.Logger,
) (*NatsWorker, error) {
	if opts.Subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		opts:           opts,
		handler:        jobHandler,
		log:            log,
	}, nil
}

// Run receives jobs until ctx is done, then drains the subscription. Jobs are
// handled one at a time on the calling goroutine, so when Run returns every
// job it received has been answered and its reply flushed.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.QueueSubscribeSync(w.opts.Subject, w.opts.Queue)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.opts.Subject, err)
	}

	w.log.Info("Listening for jobs on '%s' (queue '%s')", w.opts.Subject, w.opts.Queue)

	for {
		msg, recvErr := sub.NextMsgWithContext(ctx)
		if recvErr != nil {
			if ctx.Err() != nil {
				break
			}

			return fmt.Errorf("failed to receive job: %w", recvErr)
		}

		w.handleMessage(msg)
	}

	return w.drain(sub)
}

// drain stops new deliveries, answers the jobs already buffered for this
// worker and flushes the replies.
func (w *NatsWorker) drain(sub *nats.Subscription) error {
	w.log.Info("Draining subscription on '%s'", w.opts.Subject)

	err := sub.Drain()
	if err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}

	for {
		msg, nextErr := sub.NextMsg(drainPollInterval)
		if nextErr == nil {
			w.handleMessage(msg)

			continue
		}

		if errors.Is(nextErr, nats.ErrTimeout) && sub.IsValid() {
			continue
		}

		break
	}

	err = w.natsConnection.Flush()
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to flush replies: %w", err)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.handler.Timeout()+handleMessageMargin)
	defer cancel()

	job, err := parseJob(msg.Data)
	if err != nil {
		w.log.Error("Failed to parse job envelope: %v", err)

		w.reply(msg, Result{
			ID:     uuid.NewString(),
			Header: replyHeader(events.EventHeader{}, ""),
			Output: handler.Response{Error: fmt.Sprintf("%s: %v", errInvalidEnvelope, err), Hint: hintInvalidEnvelope},
		})

		return
	}

	w.log.Info("Received job %s (workflow %s)", job.ID, job.Header.WorkflowID)

	output := w.handler.Handle(ctx, job.Input)

	w.reply(msg, Result{
		ID:     job.ID,
		Header: replyHeader(job.Header, job.ID),
		Output: output,
	})
}

// reply answers the requester and, when configured, publishes the result.
func (w *NatsWorker) reply(msg *nats.Msg, result Result) {
	data, err := json.Marshal(result)
	if err != nil {
		w.log.Error("Failed to marshal result for job %s: %v", result.ID, err)

		return
	}

	if msg.Reply != "" {
		err = msg.Respond(data)
		if err != nil {
			w.log.Error("Failed to reply to job %s: %v", result.ID, err)
		}
	}

	if w.opts.ResultSubject != "" {
		err = w.natsConnection.Publish(w.opts.ResultSubject, data)
		if err != nil {
			w.log.Error("Failed to publish result for job %s: %v", result.ID, err)
		}
	}

	if msg.Reply == "" && w.opts.ResultSubject == "" {
		w.log.Warn("Job %s has no reply subject; result dropped", result.ID)
	}
}

func parseJob(data []byte) (*Job, error) {
	var job Job

	err := json.Unmarshal(data, &job)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	if job.Input == nil {
		job.Input = map[string]any{}
	}

	return &job, nil
}

// replyHeader carries the caller's workflow identity into a fresh event.
func replyHeader(in events.EventHeader, jobID string) events.EventHeader {
	out := events.EventHeader{
		Timestamp:  time.Now().UTC(),
		WorkflowID: in.WorkflowID,
		EventID:    uuid.NewString(),
		UserID:     in.UserID,
		TenantID:   in.TenantID,
	}

	if out.WorkflowID == "" {
		out.WorkflowID = jobID
	}

	return out
}
