// Package notifications delivers workflow events via pluggable notifiers.
//
// Events are rendered once and handed to every configured sink: ntfy over
// HTTP and e-mail over SMTP. When neither is configured the service is a
// no-op. Workflow code depends only on the Service interface and dispatches
// through the background task pool, so a slow or failing sink never blocks
// a review decision.
package notifications
