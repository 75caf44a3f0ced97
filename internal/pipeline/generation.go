package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

// GeneratedScript is one model-written draft.
type GeneratedScript struct {
	Hooks               []string
	Body                string
	FilmingInstructions *string
	Reasoning           *string
}

// BeginGeneration moves a brief into ai_processing and returns the project
// for the model prompt. A project in any other status fails with
// ErrInvalidTransition, which keeps two generations of one project from
// overlapping.
func (m *StateMachine) BeginGeneration(ctx context.Context, actor models.Actor, projectID uuid.UUID) (*models.Project, error) {
	var project *models.Project
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		next := OnGenerationStarted(p.Status)
		if !next.Move {
			return fmt.Errorf("project %s is %s: %w", projectID, p.Status, apperrors.ErrInvalidTransition)
		}
		if err := apply(ctx, tx, p, next, change{actor: actor, source: models.SourceScriptGeneration}); err != nil {
			return err
		}
		project = p
		return nil
	})
	return project, err
}

// CompleteGeneration stores the drafts as ai_generated scripts with
// consecutive versions and moves the project to scripts_in_review. Blank
// drafts are skipped; if none are left it fails with ErrEmptyBody and
// stores nothing.
func (m *StateMachine) CompleteGeneration(ctx context.Context, actor models.Actor, projectID uuid.UUID, drafts []GeneratedScript) ([]models.Script, error) {
	var scripts []models.Script
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		version, err := tx.Scripts().NextVersion(ctx, projectID)
		if err != nil {
			return err
		}

		for _, d := range drafts {
			body := strings.TrimSpace(d.Body)
			if body == "" {
				continue
			}
			s := models.Script{
				ProjectID:           projectID,
				Version:             version,
				Type:                models.ScriptAIGenerated,
				Hooks:               trimAll(d.Hooks),
				Body:                body,
				FilmingInstructions: nonEmpty(d.FilmingInstructions),
				Reasoning:           nonEmpty(d.Reasoning),
				ApprovalStatus:      models.ApprovalPending,
			}
			if err := tx.Scripts().Create(ctx, &s); err != nil {
				return err
			}
			scripts = append(scripts, s)
			version++
		}
		if len(scripts) == 0 {
			return fmt.Errorf("model returned no usable script: %w", apperrors.ErrEmptyBody)
		}
		return apply(ctx, tx, p, OnGenerationStored(p.Status), change{actor: actor, source: models.SourceScriptGeneration})
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("generated scripts stored",
		zap.String("project_id", projectID.String()),
		zap.Int("count", len(scripts)),
	)
	return scripts, nil
}

// FailGeneration returns a project stuck in ai_processing to
// brief_submitted, recording why.
func (m *StateMachine) FailGeneration(ctx context.Context, actor models.Actor, projectID uuid.UUID, cause error) error {
	reason := cause.Error()
	return m.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		return apply(ctx, tx, p, OnGenerationFailed(p.Status), change{
			actor:  actor,
			source: models.SourceScriptGeneration,
			reason: &reason,
		})
	})
}
