// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the worker health endpoint.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second

// SubmitWait bounds how long a registration submit blocks on the
// validate-then-create task before answering the browser.
const SubmitWait = 5 * time.Second

// TaskPoll is the interval between task state reads while waiting.
const TaskPoll = 50 * time.Millisecond

// TaskLease is how long a worker owns a claimed task before it may be
// claimed again.
const TaskLease = 2 * time.Minute
