// workers/testflight_worker.go
package workers

import (
	"context"
	"log"

	"bearpay-waitlist/services"
)

// TestFlightInviteWorker decouples post-signup invites from the signup
// response path. Signup enqueues and returns; the worker invites and records
// the outcome, so the two paths fail and retry independently.
type TestFlightInviteWorker struct {
	svc   *services.TestFlightService
	queue chan string
}

func NewTestFlightInviteWorker(svc *services.TestFlightService) *TestFlightInviteWorker {
	return &TestFlightInviteWorker{
		svc:   svc,
		queue: make(chan string, 256),
	}
}

// Enqueue hands a signup email to the worker without blocking the caller.
// A full queue drops the invite; the retry sweep picks those up later.
func (w *TestFlightInviteWorker) Enqueue(email string) {
	select {
	case w.queue <- email:
	default:
		log.Printf("⚠️  TestFlight invite queue full — dropping %s (retry sweep will pick it up)", email)
	}
}

func (w *TestFlightInviteWorker) Start(ctx context.Context) {
	log.Println("Starting TestFlight invite worker...")
	for {
		select {
		case <-ctx.Done():
			log.Println("TestFlight invite worker stopped.")
			return
		case email := <-w.queue:
			result, err := w.svc.InviteAndRecord(ctx, email, services.InviteOptions{})
			switch {
			case err != nil:
				log.Printf("❌ TestFlight invite for %s failed: %v", email, err)
			case result.Skipped:
				log.Printf("➡️ TestFlight invite for %s skipped: %s", email, result.Error)
			case result.AlreadyInvited:
				log.Printf("📥 %s is already a TestFlight tester", email)
			default:
				log.Printf("✅ TestFlight invite sent to %s (tester %s)", email, result.TesterID)
			}
		}
	}
}
