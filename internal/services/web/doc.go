// Package web hosts the account request web server: CalNet sign-in, the
// registration form, and the pages that follow a submitted request.
//
// The server owns its stores and the session prune schedule. Account
// creation itself runs in the worker; the web process only enqueues tasks
// and reads their state.
package web
