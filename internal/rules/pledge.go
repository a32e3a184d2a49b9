package rules

import (
	"fmt"
	"time"
	"unicode/utf8"

	"crowdfund/internal/models"
	"crowdfund/internal/policy"
)

const maxCommentLen = 200

// PledgePolicy holds the configurable parts of pledge acceptance.
type PledgePolicy struct {
	MinAmount         int
	AllowOwnerPledges bool
}

// DefaultPledgePolicy rejects non-positive amounts and self-funding.
func DefaultPledgePolicy() PledgePolicy {
	return PledgePolicy{MinAmount: 1}
}

// PledgeRequest is the caller-supplied part of a pledge. The supporter is
// never taken from the payload.
type PledgeRequest struct {
	ProjectID uint
	Amount    int
	Comment   string
	Anonymous bool
}

// ValidatePledge checks the payload shape before any store access.
func ValidatePledge(req PledgeRequest, pol PledgePolicy) error {
	fields := map[string]string{}
	if req.ProjectID == 0 {
		fields["project"] = "This field is required."
	}
	if req.Amount < pol.MinAmount {
		fields["amount"] = fmt.Sprintf("Ensure this value is greater than or equal to %d.", pol.MinAmount)
	}
	if utf8.RuneCountInString(req.Comment) > maxCommentLen {
		fields["comment"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxCommentLen)
	}
	if len(fields) > 0 {
		return models.NewFieldError(fields)
	}
	return nil
}

// AcceptPledge is the only way a Pledge comes into existence. It must be
// called with the project as read inside the transaction that will insert
// the returned pledge.
func AcceptPledge(project *models.Project, caller policy.Caller, req PledgeRequest, pol PledgePolicy, now time.Time) (*models.Pledge, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := ValidatePledge(req, pol); err != nil {
		return nil, err
	}
	if !policy.CanViewProject(caller, project) {
		return nil, models.NewNotFoundError("Project", project.ID)
	}
	if !pol.AllowOwnerPledges && policy.IsProjectOwner(caller, project) {
		return nil, models.NewForbiddenError("You cannot pledge to your own project")
	}
	if !ProjectIsOpen(project, now) {
		return nil, models.NewProjectClosedError()
	}

	return &models.Pledge{
		Amount:      req.Amount,
		Comment:     req.Comment,
		Anonymous:   req.Anonymous,
		DateSent:    now,
		ProjectID:   project.ID,
		SupporterID: caller.ID,
	}, nil
}
