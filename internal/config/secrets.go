package config

import "net/url"

const redacted = "***"

// RedactedConfig returns a copy of cfg safe to log. Secrets become "***";
// URL-shaped values keep their host so the log still says where the process
// connects.
func RedactedConfig(cfg *Config) Config {
	out := *cfg
	out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	out.Notify.Events = append([]string(nil), cfg.Notify.Events...)

	for _, s := range []*string{
		&out.Wallet.PrivateKey,
		&out.Wallet.KeyPassword,
		&out.Database.Password,
		&out.Redis.Password,
		&out.S3.AccessKey,
		&out.S3.SecretKey,
		&out.Server.APIKey,
		&out.Notify.TelegramToken,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	out.Database.DSN = redactURL(out.Database.DSN)
	out.Notify.DiscordWebhookURL = redactURL(out.Notify.DiscordWebhookURL)
	return out
}

// redactURL drops userinfo, path and query from a URL. Values that do not
// parse as an absolute URL are redacted whole.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return redacted
	}
	return u.Scheme + "://" + u.Host + "/" + redacted
}
