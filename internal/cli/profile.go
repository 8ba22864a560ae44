package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/profile"
	"github.com/prepmate/interview-client/internal/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProfileShow),
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit your profile",
	Long: `Edit profile fields. Only the flags given are changed.

Examples:
  prepmate profile edit --title "Backend Engineer" --location Berlin
  prepmate profile edit --skill Go=90 --skill SQL=70 --remove-skill Java
  prepmate profile edit --link GitHub=https://github.com/ada`,
	Args: cobra.NoArgs,
	RunE: withApp(runProfileEdit),
}

// Flags
var (
	profName         string
	profTitle        string
	profEmail        string
	profPhone        string
	profLocation     string
	profAbout        string
	profSkills       []string
	profRemoveSkills []string
	profLinks        []string
)

func init() {
	f := profileEditCmd.Flags()
	f.StringVar(&profName, "name", "", "Full name")
	f.StringVar(&profTitle, "title", "", "Job title")
	f.StringVar(&profEmail, "email", "", "Contact email")
	f.StringVar(&profPhone, "phone", "", "Phone number")
	f.StringVar(&profLocation, "location", "", "Location")
	f.StringVar(&profAbout, "about", "", "Short bio")
	f.StringArrayVar(&profSkills, "skill", nil, "Skill as name=level (0-100), repeatable")
	f.StringArrayVar(&profRemoveSkills, "remove-skill", nil, "Skill to remove, repeatable")
	f.StringArrayVar(&profLinks, "link", nil, "Social link as platform=url, repeatable")

	profileCmd.AddCommand(profileEditCmd)
}

// loadProfile returns the saved profile, seeding one from the session user
func loadProfile(ctx context.Context, app *AppContext) (profile.Profile, error) {
	p, err := app.Store.GetProfile(ctx)
	if err == nil {
		return *p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return profile.Profile{}, err
	}
	if creds, cerr := app.Store.Credentials().Get(); cerr == nil {
		return profile.FromUser(creds.User), nil
	}
	return profile.Profile{}, nil
}

func runProfileShow(cmd *cobra.Command, args []string, app *AppContext) error {
	p, err := loadProfile(commandContext(cmd), app)
	if err != nil {
		return err
	}
	return profile.Render(cmd.OutOrStdout(), p)
}

func runProfileEdit(cmd *cobra.Command, args []string, app *AppContext) error {
	ctx := commandContext(cmd)
	p, err := loadProfile(ctx, app)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = strings.TrimSpace(value)
		}
	}
	set("name", &p.Name, profName)
	set("title", &p.Title, profTitle)
	set("email", &p.Email, profEmail)
	set("phone", &p.Phone, profPhone)
	set("location", &p.Location, profLocation)
	set("about", &p.About, profAbout)

	for _, s := range profSkills {
		name, level, err := parseSkill(s)
		if err != nil {
			return err
		}
		if err := p.SetSkill(name, level); err != nil {
			return err
		}
	}
	for _, name := range profRemoveSkills {
		if !p.RemoveSkill(name) {
			return fmt.Errorf("no skill named %q", name)
		}
	}
	for _, l := range profLinks {
		platform, url, ok := strings.Cut(l, "=")
		if !ok || strings.TrimSpace(platform) == "" {
			return fmt.Errorf("invalid link %q (expected platform=url)", l)
		}
		p.SetLink(strings.TrimSpace(platform), strings.TrimSpace(url))
	}

	if err := p.Validate(); err != nil {
		return err
	}
	if err := app.Store.SaveProfile(ctx, p); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
	return nil
}

func parseSkill(s string) (string, int, error) {
	name, levelStr, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid skill %q (expected name=level)", s)
	}
	level, err := strconv.Atoi(strings.TrimSpace(levelStr))
	if err != nil {
		return "", 0, fmt.Errorf("invalid skill level in %q: %w", s, err)
	}
	return strings.TrimSpace(name), level, nil
}
