// Package tasks provides the small bounded worker pool that keeps slow side
// effects, such as notification delivery, off the interactive path.
package tasks
