// Package notifications delivers saved-record events via a Discord webhook.
//
// The default implementation posts embed messages to the webhook configured in
// config.toml and gracefully degrades to a no-op when no URL is set. Delivery
// is best-effort by contract: the pipeline logs failures and never retries or
// blocks on them.
//
// Extend this package if you need alternative transports; all pipeline code
// depends only on the simple Service interface.
package notifications
