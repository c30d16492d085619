package config

import (
	"maps"
	"net/url"
)

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.OddsAPI.APIKey)
	redact(&out.Supabase.DSN)
	redact(&out.Supabase.Password)
	redact(&out.Redis.Password)
	if out.Redis.URL != "" {
		out.Redis.URL = redactURL(out.Redis.URL)
	}
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy reference types so callers cannot mutate the original through
	// the redacted copy.
	out.Jobs = append([]string(nil), cfg.Jobs...)
	out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	out.OddsAPI.Bookmakers = append([]string(nil), cfg.OddsAPI.Bookmakers...)
	out.BookNames = maps.Clone(cfg.BookNames)
	out.Schedule.Jobs = maps.Clone(cfg.Schedule.Jobs)

	out.Sports = make([]SportConfig, len(cfg.Sports))
	for i, s := range cfg.Sports {
		s.Markets = maps.Clone(s.Markets)
		s.Alternates = append([]string(nil), s.Alternates...)
		out.Sports[i] = s
	}

	// Override tables are player data, not secrets, but they can be large.
	out.Resolver.Overrides = nil

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

// redactURL hides the password in a connection URL but keeps the host.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}
