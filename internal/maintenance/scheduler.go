// Package maintenance implements the periodic store-maintenance
// scheduler (C13): stale five-minute bar pruning and cold-snapshot
// archival, run on their own robfig/cron/v3 schedule, decoupled from
// request-serving goroutines.
package maintenance

import (
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/domain"
)

// FiveMinuteRetention bounds how long intraday bars are kept before
// pruneBarsJob deletes them.
const FiveMinuteRetention = 60 * 24 * time.Hour

// Job is a named, independently schedulable maintenance task.
type Job interface {
	Name() string
	Run() error
}

// Scheduler drives registered Jobs on cron schedules, never holding a
// portfolio-id lock across an I/O boundary.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New builds a maintenance scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "maintenance").Logger(),
	}
}

// AddJob registers job on the given standard 5-field cron schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		runID := uuid.New().String()
		log := s.log.With().Str("job", job.Name()).Str("run_id", runID).Logger()
		log.Debug().Msg("running maintenance job")
		if err := job.Run(); err != nil {
			log.Error().Err(err).Msg("maintenance job failed")
			return
		}
		log.Debug().Msg("maintenance job completed")
	})
	return err
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop blocks until any in-flight job finishes, then halts scheduling.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// barPruner is the narrow slice of domain.PriceStore this job needs.
type barPruner interface {
	DeleteOldFiveMinuteBars(now time.Time, horizon time.Duration) (int64, error)
}

// pruneBarsJob deletes five-minute bars older than FiveMinuteRetention
// for every ticker the store knows about.
type pruneBarsJob struct {
	store barPruner
	log   zerolog.Logger
}

// NewPruneBarsJob builds the stale five-minute bar pruning job.
func NewPruneBarsJob(store barPruner, log zerolog.Logger) Job {
	return &pruneBarsJob{store: store, log: log.With().Str("job", "prune_bars").Logger()}
}

func (j *pruneBarsJob) Name() string { return "prune_bars" }

func (j *pruneBarsJob) Run() error {
	n, err := j.store.DeleteOldFiveMinuteBars(time.Now(), FiveMinuteRetention)
	if err != nil {
		return err
	}
	if n > 0 {
		j.log.Info().Int64("rows_deleted", n).Msg("pruned stale five-minute bars")
	}
	return nil
}

// archiveSweepJob uploads cold cache entries to the archive backend
// and evicts them from the hot cache. The set of candidate keys and
// their payloads is supplied by the caller (typically the snapshot
// service, which knows its own "cold" threshold).
type archiveSweepJob struct {
	archive domain.SnapshotArchive
	cache   domain.SnapshotCache
	log     zerolog.Logger
	candidates func() (map[string][]byte, error)
}

// NewArchiveSweepJob builds the cold-snapshot archival job. candidates
// returns the key/payload pairs currently eligible for archival.
func NewArchiveSweepJob(archive domain.SnapshotArchive, cache domain.SnapshotCache, candidates func() (map[string][]byte, error), log zerolog.Logger) Job {
	return &archiveSweepJob{archive: archive, cache: cache, candidates: candidates, log: log.With().Str("job", "archive_sweep").Logger()}
}

func (j *archiveSweepJob) Name() string { return "archive_sweep" }

func (j *archiveSweepJob) Run() error {
	pending, err := j.candidates()
	if err != nil {
		return err
	}
	for key, payload := range pending {
		if err := j.archive.Upload(key, payload); err != nil {
			return err
		}
		if err := j.cache.Delete(key); err != nil {
			return err
		}
		j.log.Info().Str("key", key).Msg("archived and evicted cold snapshot")
	}
	return nil
}
