package platforms

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"signup-agent/internal/domain/entity"
)

type catalog struct {
	Platforms []entity.PlatformSpec `yaml:"platforms"`
}

// Load reads the platform catalog from a yaml file. An empty path returns
// the built-in defaults.
func Load(path string) ([]entity.PlatformSpec, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform catalog: %w", err)
	}

	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse platform catalog: %w", err)
	}
	if len(c.Platforms) == 0 {
		return nil, fmt.Errorf("platform catalog %s defines no platforms", path)
	}

	for i, spec := range c.Platforms {
		if err := validate(spec); err != nil {
			return nil, fmt.Errorf("platform %d (%s): %w", i+1, spec.Name, err)
		}
	}
	return c.Platforms, nil
}

func validate(spec entity.PlatformSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("missing name")
	}
	if spec.SignupURL == "" {
		return fmt.Errorf("missing signup_url")
	}
	if spec.Deterministic == nil && spec.GoalDirected == nil {
		return fmt.Errorf("no signup strategy configured")
	}
	if spec.Deterministic != nil && spec.GoalDirected != nil {
		return fmt.Errorf("both strategies configured, pick one")
	}
	return nil
}

// Defaults covers the fixed platform set agents are onboarded to.
func Defaults() []entity.PlatformSpec {
	return []entity.PlatformSpec{
		{
			Name:      "vercel",
			SignupURL: "https://vercel.com/signup",
			Deterministic: &entity.DeterministicSteps{
				Steps: []entity.SignupStep{
					{Action: entity.StepFill, Selector: "input[name='email']", Value: "{{email}}"},
					{Action: entity.StepSubmit, Selector: "button[type='submit']"},
				},
			},
		},
		{
			Name:      "netlify",
			SignupURL: "https://app.netlify.com/signup/email",
			Deterministic: &entity.DeterministicSteps{
				Steps: []entity.SignupStep{
					{Action: entity.StepFill, Selector: "input[name='email']", Value: "{{email}}"},
					{Action: entity.StepFill, Selector: "input[name='password']", Value: "{{password}}"},
					{Action: entity.StepSubmit, Selector: "button[type='submit']"},
				},
			},
		},
		{
			Name:          "sentry",
			SignupURL:     "https://sentry.io/signup/",
			CaptchaLikely: true,
			Deterministic: &entity.DeterministicSteps{
				Steps: []entity.SignupStep{
					{Action: entity.StepFill, Selector: "input[name='email']", Value: "{{email}}"},
					{Action: entity.StepFill, Selector: "input[name='password']", Value: "{{password}}"},
					{Action: entity.StepSubmit, Selector: "button[type='submit']"},
				},
			},
		},
		{
			Name:      "railway",
			SignupURL: "https://railway.com/new",
			GoalDirected: &entity.GoalDirected{
				Goal:             "Create a new account using the email signup option, not the OAuth buttons.",
				SuccessIndicator: "check your email",
			},
		},
		{
			Name:          "posthog",
			SignupURL:     "https://us.posthog.com/signup",
			CaptchaLikely: true,
			GoalDirected: &entity.GoalDirected{
				Goal:             "Sign up with email and password, skipping any optional onboarding questions.",
				SuccessIndicator: "verify your email",
			},
		},
	}
}
