// Package policy decides who may see or change what. Predicates take the
// caller and the already-loaded target; they never touch storage.
package policy

import "crowdfund/internal/models"

// Caller identifies the requesting user. The zero value is anonymous.
type Caller struct {
	ID uint
}

// Anonymous is the caller for unauthenticated requests.
var Anonymous = Caller{}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.ID != 0
}

// IsProjectOwner reports whether the caller owns p.
func IsProjectOwner(c Caller, p *models.Project) bool {
	return c.Authenticated() && p.OwnerID == c.ID
}

// CanViewProject allows published projects to everyone and drafts to their owner.
func CanViewProject(c Caller, p *models.Project) bool {
	return p.Published() || IsProjectOwner(c, p)
}

// CanListProject is the collection filter; it matches CanViewProject.
func CanListProject(c Caller, p *models.Project) bool {
	return CanViewProject(c, p)
}

// CanCreate allows any authenticated caller to create projects, pledges and favourites.
func CanCreate(c Caller) bool {
	return c.Authenticated()
}

// CanMutateProject allows only the owner to update or delete p.
func CanMutateProject(c Caller, p *models.Project) bool {
	return IsProjectOwner(c, p)
}

// CanSeePledge reports whether a pledge belongs in the caller's pledge
// listing: they made it or they own the project it funds.
func CanSeePledge(c Caller, pl *models.Pledge, projectOwnerID uint) bool {
	if !c.Authenticated() {
		return false
	}
	return pl.SupporterID == c.ID || projectOwnerID == c.ID
}

// CanSeeSupporter reports whether the supporter identity of pl is shown to
// the caller. Anonymous pledges hide it from everyone but the supporter and
// the project owner.
func CanSeeSupporter(c Caller, pl *models.Pledge, projectOwnerID uint) bool {
	if !pl.Anonymous {
		return true
	}
	return c.Authenticated() && (pl.SupporterID == c.ID || projectOwnerID == c.ID)
}

// IsSelf reports whether the caller is the user u.
func IsSelf(c Caller, u *models.User) bool {
	return c.Authenticated() && u.ID == c.ID
}

// VisibleProjects filters projects down to those the caller may list.
func VisibleProjects(c Caller, projects []models.Project) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for i := range projects {
		if CanListProject(c, &projects[i]) {
			out = append(out, projects[i])
		}
	}
	return out
}
