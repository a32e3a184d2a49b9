package projection

import (
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/policy"
)

// ProfileView is either an OwnerProfile or a PublicProfile. The variant is
// chosen once, by Profile, from the viewer's relation to the user.
type ProfileView interface {
	profileVariant() string
}

// PublicProfile is what anyone may see about a user.
type PublicProfile struct {
	ID            uint          `json:"id"`
	Username      string        `json:"username"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Bio           string        `json:"bio"`
	Pic           string        `json:"pic"`
	DateJoined    time.Time     `json:"date_joined"`
	LastLogin     *time.Time    `json:"last_login"`
	OwnerProjects []ProjectView `json:"owner_projects"`
}

// OwnerProfile is the user's own view of their account.
type OwnerProfile struct {
	PublicProfile
	Email            string       `json:"email"`
	SupporterPledges []PledgeView `json:"supporter_pledges"`
}

func (PublicProfile) profileVariant() string { return "public" }
func (OwnerProfile) profileVariant() string  { return "owner" }

// Profile renders u for viewer. OwnerProjects, SupporterPledges and each
// pledge's Project are used when preloaded.
func Profile(u *models.User, viewer policy.Caller, now time.Time) ProfileView {
	if policy.IsSelf(viewer, u) {
		return ownerProfile(u, viewer, now)
	}
	return publicProfile(u, viewer, now)
}

func publicProfile(u *models.User, viewer policy.Caller, now time.Time) PublicProfile {
	projects := policy.VisibleProjects(viewer, u.OwnerProjects)
	return PublicProfile{
		ID:            u.ID,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Bio:           u.Bio,
		Pic:           u.Pic,
		DateJoined:    u.DateJoined,
		LastLogin:     copyTime(u.LastLogin),
		OwnerProjects: withOwner(Projects(projects, now), u.Username),
	}
}

func ownerProfile(u *models.User, viewer policy.Caller, now time.Time) OwnerProfile {
	pledges := make([]PledgeView, 0, len(u.SupporterPledges))
	for i := range u.SupporterPledges {
		pl := u.SupporterPledges[i]
		pl.Supporter = *u
		pledges = append(pledges, Pledge(&pl, pl.Project.OwnerID, viewer))
	}
	return OwnerProfile{
		PublicProfile:    publicProfile(u, viewer, now),
		Email:            u.Email,
		SupporterPledges: pledges,
	}
}

func withOwner(views []ProjectView, username string) []ProjectView {
	for i := range views {
		views[i].Owner = username
	}
	return views
}
