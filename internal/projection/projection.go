// Package projection renders stored entities into API views. Every function
// copies; none mutates its input.
package projection

import (
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/policy"
	"crowdfund/internal/rules"
)

// ProjectView is the list representation of a project.
type ProjectView struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Goal        int        `json:"goal"`
	Image       string     `json:"image"`
	IsOpen      bool       `json:"is_open"`
	DateCreated time.Time  `json:"date_created"`
	Duration    int        `json:"duration"`
	PubDate     *time.Time `json:"pub_date"`
	ClosesAt    *time.Time `json:"closes_at"`
	Owner       string     `json:"owner"`
	OwnerID     uint       `json:"owner_id"`
	Category    string     `json:"category"`
	CategoryID  uint       `json:"category_id"`
}

// ProjectDetailView adds the pledges visible to the viewer.
type ProjectDetailView struct {
	ProjectView
	Pledges []PledgeView `json:"pledges"`
	Total   int          `json:"total_pledged"`
}

// PledgeView is a pledge with the supporter masked when required.
type PledgeView struct {
	ID        uint      `json:"id"`
	Amount    int       `json:"amount"`
	Comment   string    `json:"comment"`
	Anonymous bool      `json:"anonymous"`
	DateSent  time.Time `json:"date_sent"`
	ProjectID uint      `json:"project"`
	Supporter *string   `json:"supporter"`
}

// CategoryView is the list representation of a category.
type CategoryView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryDetailView embeds the category's projects visible to the viewer.
type CategoryDetailView struct {
	CategoryView
	Projects []ProjectView `json:"projects"`
}

// FavouriteView is a user's favourite with the project inlined.
type FavouriteView struct {
	ID        uint        `json:"id"`
	Project   ProjectView `json:"project"`
	CreatedAt time.Time   `json:"created_at"`
}

// Project renders p. Owner and Category are used when preloaded.
func Project(p *models.Project, now time.Time) ProjectView {
	return ProjectView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Goal:        p.Goal,
		Image:       p.Image,
		IsOpen:      rules.ProjectIsOpen(p, now),
		DateCreated: p.DateCreated,
		Duration:    p.Duration,
		PubDate:     copyTime(p.PubDate),
		ClosesAt:    rules.ClosesAt(p.PubDate, p.Duration),
		Owner:       p.Owner.Username,
		OwnerID:     p.OwnerID,
		Category:    p.Category.Name,
		CategoryID:  p.CategoryID,
	}
}

// Projects renders a slice of projects.
func Projects(ps []models.Project, now time.Time) []ProjectView {
	out := make([]ProjectView, 0, len(ps))
	for i := range ps {
		out = append(out, Project(&ps[i], now))
	}
	return out
}

// ProjectDetail renders p with its pledges masked for viewer.
func ProjectDetail(p *models.Project, viewer policy.Caller, now time.Time) ProjectDetailView {
	view := ProjectDetailView{
		ProjectView: Project(p, now),
		Pledges:     make([]PledgeView, 0, len(p.Pledges)),
	}
	for i := range p.Pledges {
		view.Pledges = append(view.Pledges, Pledge(&p.Pledges[i], p.OwnerID, viewer))
		view.Total += p.Pledges[i].Amount
	}
	return view
}

// Pledge renders pl. The supporter is hidden on anonymous pledges unless the
// viewer is the supporter or owns the project.
func Pledge(pl *models.Pledge, projectOwnerID uint, viewer policy.Caller) PledgeView {
	view := PledgeView{
		ID:        pl.ID,
		Amount:    pl.Amount,
		Comment:   pl.Comment,
		Anonymous: pl.Anonymous,
		DateSent:  pl.DateSent,
		ProjectID: pl.ProjectID,
	}
	if policy.CanSeeSupporter(viewer, pl, projectOwnerID) {
		name := pl.Supporter.Username
		view.Supporter = &name
	}
	return view
}

// Pledges renders a slice of pledges whose Project is preloaded.
func Pledges(pls []models.Pledge, viewer policy.Caller) []PledgeView {
	out := make([]PledgeView, 0, len(pls))
	for i := range pls {
		out = append(out, Pledge(&pls[i], pls[i].Project.OwnerID, viewer))
	}
	return out
}

// Category renders c.
func Category(c *models.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Description: c.Description}
}

// Categories renders a slice of categories.
func Categories(cs []models.Category) []CategoryView {
	out := make([]CategoryView, 0, len(cs))
	for i := range cs {
		out = append(out, Category(&cs[i]))
	}
	return out
}

// CategoryDetail renders c with the projects viewer may see.
func CategoryDetail(c *models.Category, viewer policy.Caller, now time.Time) CategoryDetailView {
	return CategoryDetailView{
		CategoryView: Category(c),
		Projects:     Projects(policy.VisibleProjects(viewer, c.Projects), now),
	}
}

// Favourite renders f with its preloaded project.
func Favourite(f *models.Favourite, now time.Time) FavouriteView {
	return FavouriteView{
		ID:        f.ID,
		Project:   Project(&f.Project, now),
		CreatedAt: f.CreatedAt,
	}
}

// Favourites renders a slice of favourites.
func Favourites(fs []models.Favourite, now time.Time) []FavouriteView {
	out := make([]FavouriteView, 0, len(fs))
	for i := range fs {
		out = append(out, Favourite(&fs[i], now))
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
