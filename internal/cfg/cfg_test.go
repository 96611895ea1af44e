package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		BackendEndpoint:       "http://backend:8000",
		BackendTimeoutSeconds: 30,
		PageSize:              25,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.BackendTimeoutSeconds != 30 {
		t.Errorf("BackendTimeoutSeconds = %d, want 30", c.BackendTimeoutSeconds)
	}
	if c.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", c.PageSize)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-backend-endpoint", "http://detection:8000",
		"-backend-timeout-seconds", "10",
		"-page-size", "50",
		"-slack-webhook-url", "https://hooks.slack.com/services/T000/B000/XXX",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.BackendEndpoint != "http://detection:8000" {
		t.Errorf("BackendEndpoint = %q, want http://detection:8000", c.BackendEndpoint)
	}
	if c.BackendTimeoutSeconds != 10 {
		t.Errorf("BackendTimeoutSeconds = %d, want 10", c.BackendTimeoutSeconds)
	}
	if c.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", c.PageSize)
	}
	if c.SlackWebhookURL == "" {
		t.Error("SlackWebhookURL not set from flag")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate(valid config) = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"drain zero", func(c *Config) { c.DrainSeconds = 0 }, "DRAIN_SECONDS"},
		{"drain too large", func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 }, "DRAIN_SECONDS"},
		{"budget zero", func(c *Config) { c.ShutdownBudgetSeconds = 0 }, "SHUTDOWN_BUDGET_SECONDS"},
		{"budget not greater than drain", func(c *Config) { c.ShutdownBudgetSeconds = 60 }, "must be greater than"},
		{"port zero", func(c *Config) { c.APIPort = 0 }, "HTTP_PORT"},
		{"port too large", func(c *Config) { c.APIPort = 70000 }, "HTTP_PORT"},
		{"endpoint missing", func(c *Config) { c.BackendEndpoint = "" }, "BACKEND_ENDPOINT is required"},
		{"endpoint relative", func(c *Config) { c.BackendEndpoint = "backend:8000" }, "absolute URL"},
		{"timeout zero", func(c *Config) { c.BackendTimeoutSeconds = 0 }, "BACKEND_TIMEOUT_SECONDS"},
		{"page size zero", func(c *Config) { c.PageSize = 0 }, "PAGE_SIZE"},
		{"page size too large", func(c *Config) { c.PageSize = 500 }, "PAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() = %q, want to contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.APIPort = 0
	c.PageSize = 0
	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "HTTP_PORT") || !strings.Contains(err.Error(), "PAGE_SIZE") {
		t.Errorf("Validate() = %q, want both field errors reported", err.Error())
	}
}
