package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
)

type seedCase struct {
	title  string
	status string
	notes  []string
}

var seedCases = []seedCase{
	{
		title:  "Onboarding review for Acme Corp",
		status: domain.CaseStatusOpen,
		notes: []string{
			"Initial intake completed; documents received from the client.",
			"Flagged for enhanced review due to cross-border activity.",
		},
	},
	{
		title:  "Quarterly compliance audit",
		status: domain.CaseStatusInReview,
		notes: []string{
			"Audit checklist distributed to the regional teams.",
		},
	},
	{
		title:  "Incident follow-up: delayed filing",
		status: domain.CaseStatusOpen,
		notes:  nil,
	},
}

// SeedCases populates sample cases with notes when the store is empty. Notes
// flow through CaseService so the seeded data carries a valid audit chain.
func SeedCases(ctx context.Context, cases repository.CaseRepository, caseService *CaseService, logger *zap.Logger) error {
	count, err := cases.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, seed := range seedCases {
		c, err := caseService.CreateCase(ctx, CaseCreateInput{Title: seed.title, Status: seed.status})
		if err != nil {
			return err
		}
		for _, body := range seed.notes {
			if _, err := caseService.AddNote(ctx, c.ID, body, domain.SystemActor(ServiceActorID), nil); err != nil {
				return err
			}
		}
	}
	logger.Info("seeded sample cases", zap.Int("count", len(seedCases)))
	return nil
}
