// Package metrics emits the gateway's security counters.
package metrics

import (
	"time"

	obserrors "github.com/target/noticeboard/internal/observability/errors"
	"github.com/target/noticeboard/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Metric names.
const (
	MetricLogin       = "auth.login"
	MetricRememberMe  = "auth.remember_me"
	MetricDenied      = "auth.denied"
	MetricLogout      = "auth.logout"
	MetricTokenPurge  = "auth.token_purge"
	MetricPurgeTiming = "auth.token_purge.duration"
)

// AuthEvent describes one pipeline decision for metric emission.
type AuthEvent struct {
	Name   string
	Result string
	Method string
	Err    error
}

// EmitAuth emits a counter for an auth event, tagging the error class on failures.
func EmitAuth(sink statsd.Sink, ev AuthEvent) {
	if sink == nil || ev.Name == "" {
		return
	}
	tags := map[string]string{"result": ev.Result}
	if ev.Method != "" {
		tags["method"] = ev.Method
	}
	if ev.Err != nil && ev.Result != ResultSuccess {
		if class := obserrors.Classify(ev.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count(ev.Name, 1, tags)
}

// EmitTokenPurge records a reaper pass.
func EmitTokenPurge(sink statsd.Sink, deleted int64, took time.Duration, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	tags := map[string]string{}
	if err != nil {
		result = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	tags["result"] = result
	sink.Count(MetricTokenPurge, deleted, tags)
	sink.Timing(MetricPurgeTiming, took, map[string]string{"result": result})
}
