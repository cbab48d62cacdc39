package execution

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"sniperbot-go/internal/signal"
)

// DecisionSink consumes accepted decisions.
type DecisionSink interface {
	Handle(ctx context.Context, d signal.Decision) error
}

// SinkFunc adapts a function to DecisionSink.
type SinkFunc func(ctx context.Context, d signal.Decision) error

func (f SinkFunc) Handle(ctx context.Context, d signal.Decision) error { return f(ctx, d) }

// Fanout delivers every decision to all sinks. One failing sink does not stop the others.
type Fanout struct {
	sinks []DecisionSink
	log   zerolog.Logger
}

// NewFanout skips nil sinks, including typed-nil pointers.
func NewFanout(log zerolog.Logger, sinks ...DecisionSink) *Fanout {
	f := &Fanout{log: log}
	for _, s := range sinks {
		if !isNilSink(s) {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func isNilSink(s DecisionSink) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Len returns the number of attached sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Handle(ctx context.Context, d signal.Decision) error {
	var errs []error
	for i, s := range f.sinks {
		if err := f.deliver(ctx, s, d); err != nil {
			f.log.Error().Err(err).Int("sink", i).Str("decision_id", d.ID).Msg("decision sink failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) deliver(ctx context.Context, s DecisionSink, d signal.Decision) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Handle(ctx, d)
}
