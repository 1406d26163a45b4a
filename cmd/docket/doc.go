// Package main hosts the docket CLI.
//
// Every command resolves the acting principal from flags or the config file,
// opens the shared stores under the configured data root, runs one workflow
// operation, and prints either a table or JSON. Business rules live in
// internal/workflow; this package only translates terminal input.
package main
