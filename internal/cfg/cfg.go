package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
)

// Config adds console-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	BackendEndpoint       string
	BackendTimeoutSeconds int
	PageSize              int
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.BackendEndpoint, "backend-endpoint", "", "detection backend base URL, e.g. http://backend:8000")
	fs.IntVar(&c.BackendTimeoutSeconds, "backend-timeout-seconds", 30, "per-request timeout against the detection backend (1..300)")
	fs.IntVar(&c.PageSize, "page-size", 25, "alert queue page size (1..200)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for pipeline run notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Backend endpoint is required, every console operation talks to it
	if c.BackendEndpoint == "" {
		errs = append(errs, errors.New("BACKEND_ENDPOINT is required"))
	} else if u, err := url.Parse(c.BackendEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid BACKEND_ENDPOINT %q (must be an absolute URL)", c.BackendEndpoint))
	}

	if c.BackendTimeoutSeconds <= 0 || c.BackendTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid BACKEND_TIMEOUT_SECONDS %d (must be 1..300)", c.BackendTimeoutSeconds))
	}

	if c.PageSize <= 0 || c.PageSize > 200 {
		errs = append(errs, fmt.Errorf("invalid PAGE_SIZE %d (must be 1..200)", c.PageSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
