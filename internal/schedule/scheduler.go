package schedule

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"draftbot/internal/config"
	"draftbot/internal/fileutil"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/pipeline"
	"draftbot/internal/services"
)

// Job names one scheduled unit of work.
type Job string

const (
	JobResearch Job = "research"
	JobReport   Job = "report"
	JobDraft    Job = "draft"
)

const (
	checkInterval  = time.Hour
	historyFiles   = 4
	dateLayout     = "2006-01-02"
	researchPrefix = "research_topics_"
	reportPrefix   = "topic_report_"
)

// ParseJob accepts a job name as typed on the command line.
func ParseJob(value string) (Job, bool) {
	switch Job(strings.ToLower(strings.TrimSpace(value))) {
	case JobResearch:
		return JobResearch, true
	case JobReport:
		return JobReport, true
	case JobDraft:
		return JobDraft, true
	default:
		return "", false
	}
}

// Generator produces topics and composed drafts.
type Generator interface {
	Topics(ctx context.Context, n int, mode pipeline.Mode, avoid []string) ([]string, error)
	Compose(ctx context.Context, topic string) (pipeline.Composed, error)
}

// Journal remembers which jobs already ran.
type Journal interface {
	ScheduleRan(ctx context.Context, date, mode string) (bool, error)
	ClaimScheduleRun(ctx context.Context, date, mode, detail string, at time.Time) error
}

// Result describes one job execution.
type Result struct {
	Job     Job
	Date    string
	Skipped bool
	Path    string
	Topics  []string
	Draft   string
}

// Scheduler triggers pipeline jobs on weekdays.
type Scheduler struct {
	cfg     *config.Config
	gen     Generator
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastRun time.Time
	lastErr error
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a scheduler.
func New(cfg *config.Config, gen Generator, j Journal, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		gen:     gen,
		journal: j,
		logger:  logging.NewComponentLogger(logger, "schedule"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JobsFor returns the jobs scheduled on the weekday of t.
func JobsFor(t time.Time) []Job {
	var jobs []Job
	switch t.Weekday() {
	case time.Monday:
		jobs = append(jobs, JobResearch, JobReport)
	case time.Wednesday, time.Friday:
		jobs = append(jobs, JobReport)
	}
	return jobs
}

// Start checks for due jobs now and then hourly until ctx ends or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop ends the check loop and waits for an in-flight job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if _, err := s.RunDue(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(s.logger, "scheduled pipeline run failed", "schedule_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check llm.api_key and provider status"),
				logging.String(logging.FieldImpact, "the job is retried at the next hourly check"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunDue runs today's jobs that have not run yet, once the configured hour
// has passed.
func (s *Scheduler) RunDue(ctx context.Context) ([]Result, error) {
	now := s.now()
	if now.Hour() < s.cfg.Pipeline.ScheduleHour {
		return nil, nil
	}
	var (
		results []Result
		errs    []error
	)
	for _, job := range JobsFor(now) {
		res, err := s.Run(ctx, job, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job, err))
			continue
		}
		if !res.Skipped {
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}

// Run executes job for today. Unless force is set, a job that already ran
// today is skipped.
func (s *Scheduler) Run(ctx context.Context, job Job, force bool) (Result, error) {
	now := s.now()
	date := now.Format(dateLayout)
	res := Result{Job: job, Date: date}

	if !force {
		ran, err := s.journal.ScheduleRan(ctx, date, string(job))
		if err != nil {
			return res, err
		}
		if ran {
			res.Skipped = true
			return res, nil
		}
	}

	ctx = services.WithNewRequestID(ctx)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("pipeline job started",
		logging.Event("pipeline_job_started"),
		logging.String("job", string(job)),
		logging.Bool("forced", force),
	)

	var err error
	switch job {
	case JobResearch:
		err = s.research(ctx, &res)
	case JobReport:
		err = s.report(ctx, &res)
	case JobDraft:
		err = s.draft(ctx, &res, "")
	default:
		err = fmt.Errorf("%w: unknown job %q", services.ErrValidation, job)
	}
	s.mu.Lock()
	s.lastRun = now
	s.lastErr = err
	s.mu.Unlock()
	if err != nil {
		return res, err
	}

	detail := res.Path
	if res.Draft != "" {
		detail += " " + res.Draft
	}
	if cerr := s.journal.ClaimScheduleRun(ctx, date, string(job), strings.TrimSpace(detail), s.now()); cerr != nil && !errors.Is(cerr, journal.ErrAlreadyRan) {
		logger.Warn("schedule run not recorded", logging.Error(cerr))
	}
	logger.Info("pipeline job finished",
		logging.Event("pipeline_job_finished"),
		logging.String("job", string(job)),
		logging.String("output", res.Path),
		logging.Int("topics", len(res.Topics)),
		logging.String("draft", res.Draft),
	)
	return res, nil
}

// ComposeTopic writes a draft for topic, or for a freshly generated topic
// when topic is empty.
func (s *Scheduler) ComposeTopic(ctx context.Context, topic string) (Result, error) {
	res := Result{Job: JobDraft, Date: s.now().Format(dateLayout)}
	ctx = services.WithNewRequestID(ctx)
	err := s.draft(ctx, &res, topic)
	return res, err
}

func (s *Scheduler) research(ctx context.Context, res *Result) error {
	topics, err := s.gen.Topics(ctx, s.cfg.Pipeline.ResearchTopics, pipeline.ModeResearch, s.history())
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return services.Wrap(services.ErrValidation, "schedule", "research", "no fresh research topics", nil)
	}
	path := filepath.Join(s.cfg.Paths.DataDir, researchPrefix+res.Date+".txt")
	if err := fileutil.WriteAtomic(path, []byte(strings.Join(topics, "\n")+"\n")); err != nil {
		return &services.FileOperationError{Op: "write", Path: path, Err: err}
	}
	res.Path = path
	res.Topics = topics
	return nil
}

func (s *Scheduler) report(ctx context.Context, res *Result) error {
	topics, err := s.gen.Topics(ctx, s.cfg.Pipeline.ReportTopics, pipeline.ModeReport, s.history())
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return services.Wrap(services.ErrValidation, "schedule", "report", "no fresh topics for the report", nil)
	}
	path := filepath.Join(s.cfg.Paths.DataDir, reportPrefix+res.Date+".md")
	if err := fileutil.WriteAtomic(path, []byte(FormatReport(res.Date, topics))); err != nil {
		return &services.FileOperationError{Op: "write", Path: path, Err: err}
	}
	res.Path = path
	res.Topics = topics

	if s.cfg.Pipeline.AutoDraft && len(topics) > 0 {
		composed, err := s.gen.Compose(ctx, topics[0])
		if err != nil {
			return fmt.Errorf("auto draft: %w", err)
		}
		res.Draft = composed.Path
	}
	return nil
}

func (s *Scheduler) draft(ctx context.Context, res *Result, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topics, err := s.gen.Topics(ctx, 1, pipeline.ModeReport, s.history())
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			return services.Wrap(services.ErrValidation, "schedule", "draft", "no fresh topic available", nil)
		}
		topic = topics[0]
	}
	composed, err := s.gen.Compose(ctx, topic)
	if err != nil {
		return err
	}
	res.Topics = []string{topic}
	res.Draft = composed.Path
	return nil
}

// FormatReport renders a dated Markdown topic report.
func FormatReport(date string, topics []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# HCM Topic Report - %s\n\n", date)
	for i, topic := range topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, topic)
	}
	return b.String()
}

// history returns topics from the most recent research and report files so
// new suggestions can avoid them.
func (s *Scheduler) history() []string {
	var files []string
	for _, pattern := range []string{researchPrefix + "*.txt", reportPrefix + "*.md"} {
		matches, err := filepath.Glob(filepath.Join(s.cfg.Paths.DataDir, pattern))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		if len(matches) > historyFiles {
			matches = matches[len(matches)-historyFiles:]
		}
		files = append(files, matches...)
	}

	var topics []string
	for _, path := range files {
		topics = append(topics, readTopics(path)...)
	}
	return topics
}

func readTopics(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var topics []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if parsed := pipeline.ParseTopics(line); len(parsed) == 1 {
			line = parsed[0]
		}
		topics = append(topics, line)
	}
	return topics
}

// Status reports when a job last ran and how it ended.
func (s *Scheduler) Status() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
