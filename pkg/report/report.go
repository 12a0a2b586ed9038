// Copyright (c) 2025, Insider QA. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report turns raw test-runner log text into a run summary.
//
// The log contract is three free-text tokens owned by the test-runner image:
// "passed: N", "failed: N", "duration: S s" (case-insensitive). Anything else
// in the log is undefined; missing tokens degrade to an unparsed summary
// rather than an error.
package report

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// State is the terminal state of a test run.
type State string

const (
	// StateSucceeded means the run finished and the Job completed.
	StateSucceeded State = "Succeeded"
	// StateFailed means the run reached a failed terminal state.
	StateFailed State = "Failed"
	// StateTimedOut means the run never reached a terminal state in time.
	StateTimedOut State = "TimedOut"
)

// RunOutcome is the immutable final record of one test run.
type RunOutcome struct {
	RunID    string  `json:"runId" yaml:"runId"`
	State    State   `json:"state" yaml:"state"`
	Passed   int     `json:"passed" yaml:"passed"`
	Failed   int     `json:"failed" yaml:"failed"`
	Duration float64 `json:"durationSeconds" yaml:"durationSeconds"`
	// Parsed is false when the log text did not contain the expected tokens;
	// counts are then zero and must be treated as unknown.
	Parsed bool   `json:"parsed" yaml:"parsed"`
	Log    string `json:"-" yaml:"-"`
}

var (
	passedRe   = regexp.MustCompile(`(?im)^.*passed:\s*(\d+)`)
	failedRe   = regexp.MustCompile(`(?im)^.*failed:\s*(\d+)`)
	durationRe = regexp.MustCompile(`(?im)duration:\s*(\d+(?:\.\d+)?)\s*s`)
)

// New builds a RunOutcome for the given terminal state, parsing counts and
// duration out of the log text. Parsing is idempotent and never fails: log
// format drift produces Parsed=false, not an error.
func New(state State, logText string) RunOutcome {
	outcome := RunOutcome{
		RunID: uuid.NewString(),
		State: state,
		Log:   logText,
	}

	passed, okP := matchInt(passedRe, logText)
	failed, okF := matchInt(failedRe, logText)
	duration, okD := matchFloat(durationRe, logText)

	if !okP && !okF && !okD {
		slog.Warn("run log did not contain recognizable result tokens")
		return outcome
	}

	outcome.Parsed = true
	outcome.Passed = passed
	outcome.Failed = failed
	outcome.Duration = duration
	return outcome
}

func matchInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func matchFloat(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
