package scriptgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Service runs one generation: brief -> ai_processing -> model ->
// scripts_in_review, or back to brief_submitted when the model fails.
type Service struct {
	machine *pipeline.StateMachine
	gen     Generator
	logger  *zap.Logger
}

// NewService returns a Service. gen may be nil when no model is configured;
// Generate then fails with ErrUnavailable.
func NewService(machine *pipeline.StateMachine, gen Generator, logger *zap.Logger) *Service {
	return &Service{machine: machine, gen: gen, logger: logger.Named("scriptgen")}
}

func (s *Service) Available() bool { return s.gen != nil }

// Generate drafts and stores scripts for the project. Background runs pass
// models.System; anyone else needs the generate capability.
func (s *Service) Generate(ctx context.Context, actor models.Actor, projectID uuid.UUID) ([]models.Script, error) {
	if !actor.IsSystem() {
		if err := access.Require(actor.Role, access.CapGenerateScripts); err != nil {
			return nil, err
		}
	}
	if s.gen == nil {
		return nil, fmt.Errorf("%w: script generation is not configured", apperrors.ErrUnavailable)
	}

	p, err := s.machine.BeginGeneration(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	drafts, err := s.gen.Generate(ctx, p, ScriptCount(p.NumVideos))
	if err == nil {
		var scripts []models.Script
		scripts, err = s.machine.CompleteGeneration(ctx, actor, projectID, drafts)
		if err == nil {
			return scripts, nil
		}
	}

	// The job context may already be past its deadline.
	if ferr := s.machine.FailGeneration(context.WithoutCancel(ctx), actor, projectID, err); ferr != nil {
		s.logger.Error("reverting failed generation",
			zap.String("project_id", projectID.String()),
			zap.Error(ferr))
	}
	s.logger.Warn("generation failed", zap.String("project_id", projectID.String()), zap.Error(err))
	return nil, err
}

// Dispatcher runs generations in the background after brief submission,
// at most limit at a time, each bounded by timeout.
type Dispatcher struct {
	svc     *Service
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ pipeline.BriefListener = (*Dispatcher)(nil)

func NewDispatcher(svc *Service, limit int64, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		svc:     svc,
		sem:     semaphore.NewWeighted(max(limit, 1)),
		timeout: timeout,
		logger:  logger.Named("dispatcher"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// BriefSubmitted queues a generation and returns immediately.
func (d *Dispatcher) BriefSubmitted(projectID uuid.UUID) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()

		scripts, err := d.svc.Generate(ctx, models.System, projectID)
		if err != nil {
			d.logger.Warn("background generation failed",
				zap.String("project_id", projectID.String()),
				zap.Error(err))
			return
		}
		d.logger.Info("background generation done",
			zap.String("project_id", projectID.String()),
			zap.Int("scripts", len(scripts)))
	}()
}

// Shutdown stops queued jobs and waits for running ones until ctx is done.
// Running jobs see their context cancelled and revert their project.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
