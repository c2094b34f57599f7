// Package inference runs a generation request against the local daemon and
// returns either a result or a classified error. It is structured by concern:
//
//   - request.go: Request, Result and input validation.
//   - errors.go: the error taxonomy and its HTTP status mapping.
//   - transport.go: the direct daemon transport (blocking and streaming).
//   - fallback.go: the command-line fallback transport and its output parser.
//   - orchestrator.go: validate, ensure the daemon, run under a deadline, fall back once, record.
//   - events.go / eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus counters and histograms.
package inference
