package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts the same 5-field expressions as the scheduler.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the structural validity of a Config.
// All problems are reported at once, joined into a single error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateRunner(cfg.Runner)...)
	errs = append(errs, validateSecrets(cfg.Secrets)...)
	errs = append(errs, validateSchedule(cfg.Schedule)...)
	errs = append(errs, validateGit(cfg.Git)...)
	errs = append(errs, validateNotion(cfg.Notion)...)
	errs = append(errs, validateGateway(cfg.Gateway)...)
	errs = append(errs, validateLog(cfg.Log)...)

	return errors.Join(errs...)
}

func validateRunner(r RunnerConfig) []error {
	var errs []error
	if strings.TrimSpace(r.LogDir) == "" {
		errs = append(errs, errors.New("config: runner.log_dir is required"))
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("config: runner.timezone: %w", err))
	}
	if len(r.Command) > 0 && strings.TrimSpace(r.Command[0]) == "" {
		errs = append(errs, errors.New("config: runner.command[0] must name an executable"))
	}
	if r.Timeout < 0 {
		errs = append(errs, errors.New("config: runner.timeout must not be negative"))
	}
	return errs
}

func validateSecrets(s SecretsConfig) []error {
	var errs []error
	names := map[string]string{
		"api_key_env":   s.APIKeyEnv,
		"master_id_env": s.MasterIDEnv,
		"slave_id_env":  s.SlaveIDEnv,
	}
	for _, key := range []string{"api_key_env", "master_id_env", "slave_id_env"} {
		if names[key] == "" {
			errs = append(errs, fmt.Errorf("config: secrets.%s is required", key))
		}
	}
	return errs
}

func validateSchedule(s ScheduleConfig) []error {
	if !s.Enabled {
		return nil
	}
	if _, err := cronParser.Parse(s.Cron); err != nil {
		return []error{fmt.Errorf("config: schedule.cron %q: %w", s.Cron, err)}
	}
	return nil
}

func validateGit(g GitConfig) []error {
	if !g.IsEnabled() {
		return nil
	}
	var errs []error
	if g.AuthorName == "" || g.AuthorEmail == "" {
		errs = append(errs, errors.New("config: git.author_name and git.author_email are required"))
	}
	if g.Push && g.Remote == "" {
		errs = append(errs, errors.New("config: git.push requires git.remote"))
	}
	return errs
}

func validateNotion(n NotionConfig) []error {
	var errs []error
	if n.Limit < 0 {
		errs = append(errs, errors.New("config: notion.limit must not be negative"))
	}
	for i, p := range n.Properties {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("config: notion.properties[%d] is empty", i))
		}
	}
	return errs
}

func validateGateway(g GatewayConfig) []error {
	if !g.Enabled {
		return nil
	}
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", g.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.bind %q: %w", g.Bind, err))
	}
	if g.RunsPerHour < 0 {
		errs = append(errs, errors.New("config: gateway.runs_per_hour must not be negative"))
	}
	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q (want debug, info, warn or error)", l.Level))
	}
	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q (want text or json)", l.Format))
	}
	return errs
}
