// Package logsink mirrors each user turn into secondary analytics sinks:
// a local CSV file, a Google Sheet and a Redis list. Every sink attempt is
// isolated: one sink failing never prevents the others from being tried,
// and no sink failure ever aborts a chat turn.
package logsink

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Row is the flattened record written to every sink.
type Row struct {
	Name       string `json:"Name"`
	BirthDate  string `json:"Date of Birth"`
	BirthTime  string `json:"Time of Birth"`
	BirthPlace string `json:"Place of Birth"`
	Prompt     string `json:"Prompt"`
}

// headerColumns is the shared column order for tabular sinks.
var headerColumns = []string{"Name", "Date of Birth", "Time of Birth", "Place of Birth", "Prompt"}

func (r Row) values() []string {
	return []string{r.Name, r.BirthDate, r.BirthTime, r.BirthPlace, r.Prompt}
}

// Sink is one destination for mirrored rows.
type Sink interface {
	Name() string
	Append(ctx context.Context, row Row) error
}

// Result records the outcome of one sink attempt.
type Result struct {
	Sink string
	Err  error
}

// Fanout invokes each registered sink in sequence inside its own failure
// boundary.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout builds a fan-out over the given sinks.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Sinks returns the number of registered sinks.
func (f *Fanout) Sinks() int {
	return len(f.sinks)
}

// Append mirrors the row to every sink and returns per-sink results.
// Failures are logged for operators and swallowed; the caller never sees an
// error.
func (f *Fanout) Append(ctx context.Context, row Row) []Result {
	results := make([]Result, 0, len(f.sinks))
	for _, sink := range f.sinks {
		err := f.appendOne(ctx, sink, row)
		if err != nil {
			f.logger.Error("log sink append failed",
				zap.String("sink", sink.Name()), zap.Error(err))
		}
		results = append(results, Result{Sink: sink.Name(), Err: err})
	}
	return results
}

func (f *Fanout) appendOne(ctx context.Context, sink Sink, row Row) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{sink: sink.Name(), value: r}
		}
	}()
	return sink.Append(ctx, row)
}

type panicError struct {
	sink  string
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("sink %s panicked: %v", e.sink, e.value)
}
