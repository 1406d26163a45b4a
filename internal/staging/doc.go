// Package staging inspects and sweeps the fallback area that holds approved
// artifacts while the projects tree is unreachable. Layout is
// <staging_dir>/<team>/<submission id>/<file>.
package staging
