/*
Package observability provides tools for monitoring the Pulse engine.

It turns lifecycle hooks into Prometheus metrics and structured log lines, and
combines several hook sets into one so that both can be installed together.
*/
package observability
