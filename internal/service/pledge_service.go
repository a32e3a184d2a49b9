package service

import (
	"context"
	"log/slog"

	"crowdfund/internal/featureflags"
	"crowdfund/internal/middleware"
	"crowdfund/internal/models"
	"crowdfund/internal/notifications"
	"crowdfund/internal/observability"
	"crowdfund/internal/policy"
	"crowdfund/internal/projection"
	"crowdfund/internal/repository"
	"crowdfund/internal/rules"

	"go.opentelemetry.io/otel/attribute"
)

type PledgeService struct {
	pledgeRepo repository.PledgeRepository
	policy     rules.PledgePolicy
	flags      *featureflags.Manager
	notifier   *notifications.Notifier
	now        Clock
}

func NewPledgeService(pledgeRepo repository.PledgeRepository, pol rules.PledgePolicy, now Clock) *PledgeService {
	return &PledgeService{
		pledgeRepo: pledgeRepo,
		policy:     pol,
		now:        clockOrDefault(now),
	}
}

// WithFlags enables per-user rollouts on top of the static policy.
func (s *PledgeService) WithFlags(flags *featureflags.Manager) *PledgeService {
	s.flags = flags
	return s
}

// WithNotifier publishes a pledge_received event to the owner after each
// accepted pledge.
func (s *PledgeService) WithNotifier(n *notifications.Notifier) *PledgeService {
	s.notifier = n
	return s
}

func (s *PledgeService) policyFor(caller policy.Caller) rules.PledgePolicy {
	return s.flags.PledgePolicy(s.policy, caller.ID)
}

// CreatePledge records a pledge from the caller. The supporter is always the
// caller; the open check and the insert share one transaction.
func (s *PledgeService) CreatePledge(ctx context.Context, caller policy.Caller, req rules.PledgeRequest) (*projection.PledgeView, error) {
	span, ctx := observability.NewSpan(ctx, "PledgeService.CreatePledge",
		attribute.Int64("project.id", int64(req.ProjectID)),
		attribute.Int("pledge.amount", req.Amount),
	)
	defer span.End()

	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	pol := s.policyFor(caller)
	if err := rules.ValidatePledge(req, pol); err != nil {
		observability.RecordPledge(observability.PledgeRejected, req.Amount)
		return nil, err
	}

	pledge, err := s.pledgeRepo.CreateChecked(ctx, req.ProjectID, func(project *models.Project) (*models.Pledge, error) {
		return rules.AcceptPledge(project, caller, req, pol, s.now())
	})
	if err != nil {
		if models.HasCode(err, models.CodeProjectClosed) {
			observability.RecordPledge(observability.PledgeClosed, req.Amount)
		} else {
			observability.RecordPledge(observability.PledgeRejected, req.Amount)
		}
		span.SetError(err)
		return nil, err
	}

	observability.RecordPledge(observability.PledgeAccepted, pledge.Amount)
	span.AddAttributes(attribute.Int64("pledge.id", int64(pledge.ID)))

	ownerID := pledge.Project.OwnerID
	ownerView := projection.Pledge(pledge, ownerID, policy.Caller{ID: ownerID})
	if err := s.notifier.PledgeReceived(ctx, ownerID, ownerView); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to notify project owner",
			slog.Uint64("project_id", uint64(pledge.ProjectID)),
			slog.String("error", err.Error()),
		)
	}

	view := projection.Pledge(pledge, ownerID, caller)
	return &view, nil
}

// ListPledges returns pledges the caller made or received.
func (s *PledgeService) ListPledges(ctx context.Context, caller policy.Caller, limit, offset int) ([]projection.PledgeView, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	pledges, err := s.pledgeRepo.ListScoped(ctx, caller.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Pledge, 0, len(pledges))
	for i := range pledges {
		if policy.CanSeePledge(caller, &pledges[i], pledges[i].Project.OwnerID) {
			visible = append(visible, pledges[i])
		}
	}
	return projection.Pledges(visible, caller), nil
}
