// Package config loads, normalizes, and validates docket configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env beside the config file,
// and honours environment fallbacks such as DOCKET_DATA_DIR and SMTP_PASS. The
// Config type also derives the on-disk layout of the shared data root (queue
// documents, lock markers, ledgers, tickets, and the SQLite stores) so every
// process that points at the same root agrees on where things live.
package config
