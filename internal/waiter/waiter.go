// Package waiter provides a generic poll-until-done operation.
package waiter

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

type Waiter struct {
	SleepDuration  time.Duration
	StatusInterval time.Duration
	Timeout        time.Duration
	Clock          clock.Clock
	Logger         logrus.FieldLogger
}

type resultType int

const (
	resultTypeDone resultType = iota
	resultTypeError
	resultTypeContinue
)

type Result struct {
	resultType resultType
	message    string
	err        error
}

func Continue(message string) Result {
	return Result{resultType: resultTypeContinue, message: message}
}

func Done() Result {
	return Result{resultType: resultTypeDone}
}

func DoneWithMessage(message string) Result {
	return Result{resultType: resultTypeDone, message: message}
}

func Error(err error) Result {
	return Result{resultType: resultTypeError, err: err}
}

// NewDefaultWaiter polls every 5 seconds for up to 30 minutes, which covers
// NAT gateway and load balancer creation.
func NewDefaultWaiter() *Waiter {
	return &Waiter{SleepDuration: 5 * time.Second, StatusInterval: 30 * time.Second, Timeout: 30 * time.Minute}
}

func (w *Waiter) clock() clock.Clock {
	if w.Clock == nil {
		w.Clock = clock.New()
	}
	return w.Clock
}

func (w *Waiter) logMessage(message string) {
	if w.Logger != nil {
		w.Logger.Info(message)
	} else {
		logrus.Info(message)
	}
}

// Wait calls fn until it returns Done or Error, the timeout elapses, or ctx
// is canceled.
func (w *Waiter) Wait(ctx context.Context, fn func(context.Context) Result) error {
	clk := w.clock()
	startTime := clk.Now()
	lastStatusTime := startTime

	for {
		if clk.Since(startTime) >= w.Timeout {
			return fmt.Errorf("timeout of %s reached", w.Timeout)
		}

		result := fn(ctx)

		switch result.resultType {
		case resultTypeDone:
			if result.message != "" {
				w.logMessage(result.message)
			}
			return nil
		case resultTypeError:
			return result.err
		case resultTypeContinue:
			if result.message != "" && clk.Since(lastStatusTime) >= w.StatusInterval {
				lastStatusTime = clk.Now()
				w.logMessage(result.message)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(w.SleepDuration):
		}
	}
}
