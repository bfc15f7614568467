package services

import (
	"context"
	"errors"
	"log"
	"time"
)

// EmailSender is the slice of EmailService the notifier needs.
type EmailSender interface {
	SendWelcomeEmail(ctx context.Context, data WelcomeEmailData) (string, error)
	SendPlanChangeEmail(ctx context.Context, data PlanChangeEmailData) (string, error)
	SendInvitationEmail(ctx context.Context, data InvitationEmailData) (string, error)
}

// Notification is one queued email. Exactly one of the data fields is set.
type Notification struct {
	Welcome    *WelcomeEmailData
	PlanChange *PlanChangeEmailData
	Invitation *InvitationEmailData
}

func (n Notification) kind() string {
	switch {
	case n.Welcome != nil:
		return "welcome"
	case n.PlanChange != nil:
		return "plan_change"
	case n.Invitation != nil:
		return "invitation"
	}
	return "empty"
}

// Notifier delivers notifications off the request path. Requests enqueue and
// move on; a single worker goroutine drains the queue with bounded retries.
// Delivery is best-effort: a full queue or an exhausted retry budget drops the
// message with an error log, it never fails the request that produced it.
type Notifier struct {
	sender   EmailSender
	queue    chan Notification
	attempts int
	backoff  time.Duration

	infoLog  *log.Logger
	errorLog *log.Logger
}

func NewNotifier(sender EmailSender, infoLog, errorLog *log.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		queue:    make(chan Notification, 64),
		attempts: 3,
		backoff:  2 * time.Second,
		infoLog:  infoLog,
		errorLog: errorLog,
	}
}

// Enqueue adds a notification without blocking. Returns false if the queue is
// full and the message was dropped.
func (n *Notifier) Enqueue(msg Notification) bool {
	select {
	case n.queue <- msg:
		return true
	default:
		n.errorLog.Printf("notifier: queue full, dropping %s notification", msg.kind())
		return false
	}
}

// Run drains the queue until ctx is cancelled. Call it in its own goroutine.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			n.deliver(ctx, msg)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, msg Notification) {
	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		id, err := n.dispatch(ctx, msg)
		if err == nil {
			n.infoLog.Printf("notifier: sent %s notification, message id %s", msg.kind(), id)
			return
		}
		lastErr = err
		if errors.Is(err, ErrEmailNotConfigured) || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(n.backoff * time.Duration(attempt)):
		}
	}
	n.errorLog.Printf("notifier: giving up on %s notification: %v", msg.kind(), lastErr)
}

func (n *Notifier) dispatch(ctx context.Context, msg Notification) (string, error) {
	switch {
	case msg.Welcome != nil:
		return n.sender.SendWelcomeEmail(ctx, *msg.Welcome)
	case msg.PlanChange != nil:
		return n.sender.SendPlanChangeEmail(ctx, *msg.PlanChange)
	case msg.Invitation != nil:
		return n.sender.SendInvitationEmail(ctx, *msg.Invitation)
	}
	return "", errors.New("notifier: empty notification")
}
