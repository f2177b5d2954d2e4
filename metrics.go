package adsql

import (
	"github.com/uber-go/tally/v4"
)

// Metrics tracks the counters of the driver and the backend.
type Metrics struct {
	Query     tally.Counter
	QueryFail tally.Counter

	Exec     tally.Counter
	ExecFail tally.Counter

	// IntegrityRelabel counts operational errors reclassified as
	// integrity violations.
	IntegrityRelabel tally.Counter

	Connect      tally.Counter
	ConnectFail  tally.Counter
	ConnectReset tally.Counter
}

func NewMetrics(scope tally.Scope) *Metrics {
	queryScope := scope.SubScope("query")
	execScope := scope.SubScope("exec")
	connScope := scope.SubScope("connection")
	errScope := scope.SubScope("errors")

	success := map[string]string{"type": "success"}
	fail := map[string]string{"type": "fail"}

	return &Metrics{
		Query:     queryScope.Tagged(success).Counter("execute"),
		QueryFail: queryScope.Tagged(fail).Counter("execute"),

		Exec:     execScope.Tagged(success).Counter("execute"),
		ExecFail: execScope.Tagged(fail).Counter("execute"),

		IntegrityRelabel: errScope.Counter("integrity_relabel"),

		Connect:      connScope.Tagged(success).Counter("open"),
		ConnectFail:  connScope.Tagged(fail).Counter("open"),
		ConnectReset: connScope.Counter("reset"),
	}
}
