// internal/ui/forms.go
package ui

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/dsablic/weathertop/internal/awsops"
	"github.com/dsablic/weathertop/internal/model"
)

// ValidateEmail accepts a single bare address.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("enter a valid email address")
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

// SubscribeForm prompts for the address to subscribe to test reports.
func SubscribeForm(email *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Description("Receive weekly test run reports").
				Placeholder("you@example.com").
				Value(email).
				Validate(ValidateEmail),
		),
	).WithTheme(huh.ThemeCharm())
}

// ScheduleForm prompts for the fields of req that scheduling needs. Values
// already set are offered as defaults.
func ScheduleForm(req *model.ScheduleRequest) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task definition ARN").
				Value(&req.TaskDefinitionArn).
				Validate(required("task definition ARN")),
			huh.NewInput().
				Title("Cluster name").
				Value(&req.ClusterName).
				Validate(required("cluster name")),
			huh.NewInput().
				Title("Schedule").
				Description("cron(...) or rate(...), evaluated in UTC").
				Value(&req.Cron).
				Validate(awsops.ValidateSchedule),
		),
	).WithTheme(huh.ThemeCharm())
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().Title(title).Value(&ok).Run()
	return ok, err
}
