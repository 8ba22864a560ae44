// Package profile holds the user's editable profile record.
package profile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prepmate/interview-client/internal/auth"
)

var (
	ErrInvalidLevel = errors.New("skill level must be between 0 and 100")
	ErrEmptyName    = errors.New("name cannot be empty")
)

// Skill is a named skill with a 0-100 proficiency
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// SocialLink is a profile link such as GitHub or LinkedIn
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Experience is one work history entry
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Education is one education entry
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Profile is the stored user profile
type Profile struct {
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Location    string       `json:"location"`
	About       string       `json:"about"`
	Skills      []Skill      `json:"skills"`
	SocialMedia []SocialLink `json:"socialMedia"`
	Experience  []Experience `json:"experience"`
	Education   []Education  `json:"education"`
}

// FromUser seeds a profile from the logged-in user's record
func FromUser(u *auth.UserInfo) Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		Name:  u.DisplayName(),
		Email: u.Email,
	}
}

// Validate checks the fields an edit can break
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	for _, s := range p.Skills {
		if s.Level < 0 || s.Level > 100 {
			return fmt.Errorf("%s: %w", s.Name, ErrInvalidLevel)
		}
	}
	return nil
}

// SetSkill adds a skill or updates the level of an existing one (case-insensitive)
func (p *Profile) SetSkill(name string, level int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("skill name cannot be empty")
	}
	if level < 0 || level > 100 {
		return fmt.Errorf("%s: %w", name, ErrInvalidLevel)
	}
	for i := range p.Skills {
		if strings.EqualFold(p.Skills[i].Name, name) {
			p.Skills[i].Level = level
			return nil
		}
	}
	p.Skills = append(p.Skills, Skill{Name: name, Level: level})
	return nil
}

// RemoveSkill drops a skill by name and reports whether it existed
func (p *Profile) RemoveSkill(name string) bool {
	for i := range p.Skills {
		if strings.EqualFold(p.Skills[i].Name, name) {
			p.Skills = append(p.Skills[:i], p.Skills[i+1:]...)
			return true
		}
	}
	return false
}

// SetLink adds or replaces the link for a platform
func (p *Profile) SetLink(platform, url string) {
	for i := range p.SocialMedia {
		if strings.EqualFold(p.SocialMedia[i].Platform, platform) {
			p.SocialMedia[i].URL = url
			return
		}
	}
	p.SocialMedia = append(p.SocialMedia, SocialLink{Platform: platform, URL: url})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Render writes the profile in a readable block
func Render(w io.Writer, p Profile) error {
	fmt.Fprintf(w, "%s\n", orDash(p.Name))
	if p.Title != "" {
		fmt.Fprintf(w, "%s\n", p.Title)
	}
	fmt.Fprintf(w, "\nEmail:    %s\n", orDash(p.Email))
	fmt.Fprintf(w, "Phone:    %s\n", orDash(p.Phone))
	fmt.Fprintf(w, "Location: %s\n", orDash(p.Location))

	if p.About != "" {
		fmt.Fprintf(w, "\nAbout\n  %s\n", p.About)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintln(w, "\nSkills")
		for _, s := range p.Skills {
			fmt.Fprintf(w, "  %-20s %3d%%\n", s.Name, s.Level)
		}
	}
	if len(p.SocialMedia) > 0 {
		fmt.Fprintln(w, "\nLinks")
		for _, l := range p.SocialMedia {
			fmt.Fprintf(w, "  %-10s %s\n", l.Platform, l.URL)
		}
	}
	if len(p.Experience) > 0 {
		fmt.Fprintln(w, "\nExperience")
		for _, e := range p.Experience {
			fmt.Fprintf(w, "  %s, %s (%s)\n", e.Title, e.Company, e.Duration)
			if e.Description != "" {
				fmt.Fprintf(w, "    %s\n", e.Description)
			}
		}
	}
	if len(p.Education) > 0 {
		fmt.Fprintln(w, "\nEducation")
		for _, e := range p.Education {
			fmt.Fprintf(w, "  %s, %s (%s)\n", e.Degree, e.Institution, e.Duration)
			if e.Description != "" {
				fmt.Fprintf(w, "    %s\n", e.Description)
			}
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
