package rules

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"crowdfund/internal/models"
)

const maxTitleLen = 200

// ProjectFields carries the writable project fields. Nil pointers are
// absent from a partial update.
type ProjectFields struct {
	Title       *string
	Description *string
	Goal        *int
	Image       *string
	Duration    *int
	PubDate     *time.Time
	CategoryID  *uint
}

// ValidateProject checks project write payloads. With partial set only the
// supplied fields are checked; otherwise every required field must be present.
func ValidateProject(in ProjectFields, partial bool, now time.Time) error {
	fields := map[string]string{}

	if in.Title != nil || !partial {
		switch {
		case in.Title == nil || strings.TrimSpace(*in.Title) == "":
			fields["title"] = "This field is required."
		case utf8.RuneCountInString(*in.Title) > maxTitleLen:
			fields["title"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLen)
		}
	}
	if in.Description != nil || !partial {
		if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
			fields["description"] = "This field is required."
		}
	}
	if in.Goal != nil || !partial {
		switch {
		case in.Goal == nil:
			fields["goal"] = "This field is required."
		case *in.Goal <= 0:
			fields["goal"] = "Ensure this value is greater than 0."
		}
	}
	if in.Duration != nil || !partial {
		switch {
		case in.Duration == nil:
			fields["duration"] = "This field is required."
		case *in.Duration < 0:
			fields["duration"] = "Ensure this value is greater than or equal to 0."
		}
	}
	if in.Image != nil || !partial {
		if in.Image == nil || !validImageURL(*in.Image) {
			fields["image"] = "Enter a valid URL."
		}
	}
	if in.PubDate != nil && in.PubDate.After(now) {
		fields["pub_date"] = "Publication date cannot be in the future."
	}

	if len(fields) > 0 {
		return models.NewFieldError(fields)
	}
	return nil
}

// ValidatePublishedChange rejects updates that would move the closing instant
// of an already published project. Publication is one-way.
func ValidatePublishedChange(existing *models.Project, in ProjectFields) error {
	if !existing.Published() {
		return nil
	}
	fields := map[string]string{}
	if in.PubDate != nil && !in.PubDate.Equal(*existing.PubDate) {
		fields["pub_date"] = "Publication date cannot change once a project is published."
	}
	if in.Duration != nil && *in.Duration != existing.Duration {
		fields["duration"] = "Duration cannot change once a project is published."
	}
	if len(fields) > 0 {
		return models.NewFieldError(fields)
	}
	return nil
}

// ApplyProject copies the supplied fields onto p.
func ApplyProject(p *models.Project, in ProjectFields) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Goal != nil {
		p.Goal = *in.Goal
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
	}
	if in.Duration != nil {
		p.Duration = *in.Duration
	}
	if in.PubDate != nil {
		pub := in.PubDate.UTC()
		p.PubDate = &pub
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
}

func validImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
