// Package orchestrator drives one resumable crawl-and-download run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cwygoda/coursedl/internal/adapter/fetch"
	"github.com/cwygoda/coursedl/internal/adapter/provider"
	"github.com/cwygoda/coursedl/internal/domain"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Authenticator hands out provider sessions.
type Authenticator interface {
	Anonymous() *provider.Session
	Login(ctx context.Context, username, password string) (*provider.Session, error)
}

// Discoverer lists catalog identifiers.
type Discoverer interface {
	Discover(ctx context.Context, s *provider.Session) ([]string, error)
}

// MetadataFetcher retrieves the layout of one course.
type MetadataFetcher interface {
	Fetch(ctx context.Context, s *provider.Session, identifier string) (*domain.CourseInfo, error)
}

// ClipLocator resolves media candidates for a clip.
type ClipLocator interface {
	Locate(ctx context.Context, s *provider.Session, r domain.ClipRequest) ([]domain.MediaCandidate, error)
}

// Fetcher writes one clip to disk from a candidate list.
type Fetcher interface {
	Fetch(ctx context.Context, r domain.Requester, candidates []domain.MediaCandidate, dest string) error
}

// Services are the provider-facing collaborators of a run.
type Services struct {
	Sessions Authenticator
	Catalog  Discoverer
	Metadata MetadataFetcher
	Locator  ClipLocator
	Fetcher  Fetcher
}

// Config holds the run parameters.
type Config struct {
	Username string
	Password string

	// Domains are the accepted course audiences.
	Domains []string

	DownloadDelay time.Duration
	CourseDelay   time.Duration

	// Retry applies to media-location queries.
	Retry domain.RetryPolicy

	DownloadDir string
	Extension   string
}

// RunReport counts what a run did.
type RunReport struct {
	RunID string

	CoursesCompleted int
	CoursesSkipped   int
	CoursesFailed    int

	ClipsDownloaded   int
	ClipsPresent      int
	ClipsFailed       int
	ClipsWithoutMedia int
}

func (r RunReport) String() string {
	return fmt.Sprintf("courses: %d completed, %d skipped, %d failed; clips: %d downloaded, %d present, %d failed, %d without media",
		r.CoursesCompleted, r.CoursesSkipped, r.CoursesFailed,
		r.ClipsDownloaded, r.ClipsPresent, r.ClipsFailed, r.ClipsWithoutMedia)
}

// Orchestrator sequences discovery, login and per-course processing, and
// persists progress after every completed course.
type Orchestrator struct {
	cfg     Config
	tracker *domain.ProgressTracker
	svc     Services
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator.
func New(cfg Config, tracker *domain.ProgressTracker, svc Services) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		tracker: tracker,
		svc:     svc,
		sleep:   domain.Sleep,
	}
}

// Run processes every pending catalog entry. On a fatal error or
// cancellation the snapshot is persisted before the cause is returned.
func (o *Orchestrator) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString()}
	logger := log.WithField("run", report.RunID)

	found, err := o.tracker.Load(ctx)
	if err != nil {
		return report, err
	}

	if !found {
		logger.Info("no saved progress, discovering catalog")
		ids, err := o.svc.Catalog.Discover(ctx, o.svc.Sessions.Anonymous())
		if err != nil {
			return report, err
		}
		added := o.tracker.Seed(ids)
		logger.Infof("seeded %d catalog entries", added)
		if err := o.tracker.Save(ctx); err != nil {
			return report, err
		}
	}

	if err := o.process(ctx, logger, &report); err != nil {
		return report, o.abort(logger, err)
	}

	o.tracker.SetCurrent("")
	if err := o.tracker.Save(ctx); err != nil {
		return report, err
	}
	logger.Infof("run finished: %s", report)
	return report, nil
}

func (o *Orchestrator) process(ctx context.Context, logger *log.Entry, report *RunReport) error {
	session, err := o.svc.Sessions.Login(ctx, o.cfg.Username, o.cfg.Password)
	if err != nil {
		return err
	}

	pending := o.tracker.Pending()
	done, _ := o.tracker.Counts()
	logger.Infof("%d courses pending, %d done", len(pending), done)

	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		visited, err := o.processCourse(ctx, logger.WithField("course", id), session, id, report)
		if err != nil {
			return err
		}
		if visited && i < len(pending)-1 {
			if err := o.sleep(ctx, o.cfg.CourseDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// abort persists the snapshot with a fresh context, since ctx may be the
// reason for aborting.
func (o *Orchestrator) abort(logger *log.Entry, cause error) error {
	logger.Warnf("aborting: %v", cause)
	if errors.Is(cause, domain.ErrPersistence) {
		return cause
	}
	if err := o.tracker.Save(context.Background()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// processCourse returns visited=true when the course clips were walked.
func (o *Orchestrator) processCourse(ctx context.Context, entry *log.Entry, s *provider.Session, id string, report *RunReport) (bool, error) {
	o.tracker.SetCurrent(id)

	info, err := o.svc.Metadata.Fetch(ctx, s, id)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		entry.Errorf("leaving course pending: %v", err)
		report.CoursesFailed++
		return false, nil
	}

	if !info.InDomains(o.cfg.Domains) {
		entry.WithField("audiences", info.Audiences).Info("course outside accepted domains")
		report.CoursesSkipped++
		return false, o.complete(ctx, id)
	}

	entry.Infof("%d modules, %d clips", len(info.Modules), info.ClipCount())
	for _, m := range info.Modules {
		for _, c := range m.Clips {
			clipEntry := entry.WithFields(log.Fields{"module": m.Name, "clip": c.Index})
			if err := o.processClip(ctx, clipEntry, s, info, m, c, report); err != nil {
				return true, err
			}
		}
	}

	report.CoursesCompleted++
	return true, o.complete(ctx, id)
}

func (o *Orchestrator) complete(ctx context.Context, id string) error {
	if err := o.tracker.MarkDone(id); err != nil {
		return err
	}
	return o.tracker.Save(ctx)
}

func (o *Orchestrator) processClip(ctx context.Context, entry *log.Entry, s *provider.Session, info *domain.CourseInfo, m domain.Module, c domain.Clip, report *RunReport) error {
	dest := fetch.ClipPath(o.cfg.DownloadDir, info.ID, m.Name, c.Index, c.Title, o.cfg.Extension)
	if _, err := os.Stat(dest); err == nil {
		entry.Debug("already downloaded")
		report.ClipsPresent++
		return nil
	}

	req := domain.ClipRequest{
		Author:     info.Author,
		CourseID:   info.ID,
		ModuleName: m.Name,
		ClipIndex:  c.Index,
	}
	if err := o.fetchClip(ctx, entry, s, req, c, dest, report); err != nil {
		return err
	}
	// every queried clip waits, whatever the outcome
	return o.sleep(ctx, o.cfg.DownloadDelay)
}

// fetchClip locates and downloads one clip. Clip failures are counted and
// absorbed; only cancellation is returned.
func (o *Orchestrator) fetchClip(ctx context.Context, entry *log.Entry, s *provider.Session, req domain.ClipRequest, c domain.Clip, dest string, report *RunReport) error {
	var candidates []domain.MediaCandidate
	err := o.cfg.Retry.Do(ctx, func(attempt int) error {
		var err error
		candidates, err = o.svc.Locator.Locate(ctx, s, req)
		if err != nil {
			entry.WithField("attempt", attempt).Warnf("locate failed: %v", err)
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entry.Errorf("skipping clip: %v", err)
		report.ClipsFailed++
		return nil
	}
	if len(candidates) == 0 {
		entry.Warn("no media locations")
		report.ClipsWithoutMedia++
		return nil
	}

	if err := o.svc.Fetcher.Fetch(ctx, s, candidates, dest); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entry.Errorf("download failed: %v", err)
		report.ClipsFailed++
		return nil
	}
	entry.Infof("downloaded %s", c.Title)
	report.ClipsDownloaded++
	return nil
}
