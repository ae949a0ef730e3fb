package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Workflow is the set of periodic entry points the scheduler drives.
type Workflow interface {
	CheckAndConfirmBookings(ctx context.Context, delay time.Duration) int
	CheckAndSendKurkartenEmails(ctx context.Context) int
	CheckAndSendPreArrivalEmails(ctx context.Context) int
	CheckAndGenerateInvoices(ctx context.Context) int
	CheckAndSendInvoices(ctx context.Context) int
	RefreshAllStatuses(ctx context.Context) int
}

// Scheduler triggers the workflow batches on fixed times of day.
type Scheduler struct {
	cron     gocron.Scheduler
	workflow Workflow
	policy   Policy
	timeout  time.Duration
}

func NewScheduler(workflow Workflow, policy Policy, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: cron, workflow: workflow, policy: policy, timeout: 10 * time.Minute}, nil
}

type scheduledJob struct {
	name string
	def  gocron.JobDefinition
	run  func(ctx context.Context) int
}

func daily(h, m uint) gocron.JobDefinition {
	return gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(h, m, 0)))
}

func (s *Scheduler) jobs() []scheduledJob {
	return []scheduledJob{
		{"auto-confirm", gocron.DurationJob(time.Hour), func(ctx context.Context) int {
			return s.workflow.CheckAndConfirmBookings(ctx, s.policy.AutoConfirmDelay)
		}},
		{"kurkarten-emails", daily(9, 0), s.workflow.CheckAndSendKurkartenEmails},
		{"pre-arrival-emails", daily(9, 15), s.workflow.CheckAndSendPreArrivalEmails},
		{"invoice-generation", daily(9, 30), s.workflow.CheckAndGenerateInvoices},
		{"invoice-sending", daily(9, 45), s.workflow.CheckAndSendInvoices},
		{"status-refresh", daily(0, 5), s.workflow.RefreshAllStatuses},
	}
}

// Register adds every job; Start must be called afterwards.
func (s *Scheduler) Register() error {
	for _, j := range s.jobs() {
		j := j
		_, err := s.cron.NewJob(
			j.def,
			gocron.NewTask(func() { s.runJob(j.name, j.run) }),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
		log.Printf("scheduler: registered %s", j.name)
	}
	return nil
}

func (s *Scheduler) runJob(name string, run func(ctx context.Context) int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n := run(ctx)
	log.Printf("scheduler: %s processed %d in %s", name, n, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.cron.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("✅ scheduler started")
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}
