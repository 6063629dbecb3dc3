package domain

import "time"

// RunResult is the outcome of one execution attempt of a target
type RunResult struct {
	ExitCode int
	Output   string // combined stdout+stderr, stderr preferred for diagnosis
	TimedOut bool
	Duration time.Duration
}

// Passed reports whether the run completed cleanly
func (r RunResult) Passed() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// ErrorText returns the portion of the output worth sending to a provider
func (r RunResult) ErrorText() string {
	if r.TimedOut {
		return "TIMEOUT"
	}
	return r.Output
}

// PatchProposal is a provider's suggested replacement for a target file.
// Created by a provider client, consumed once by the patch applier.
type PatchProposal struct {
	Path     string
	Content  string
	Provider ProviderName
	Model    string
}

// Attempt records one Run -> Analyze -> Patch cycle for the report
type Attempt struct {
	Number    int
	Result    RunResult
	Patch     *PatchProposal // nil when the run passed or the provider errored
	ErrorKind ErrorKind      // ErrNone unless a classified error occurred
	ErrorText string
	StartedAt time.Time
}

// TargetReport is the ordered attempt history for a single file
type TargetReport struct {
	Path       string
	Language   Language
	Status     TargetStatus
	Attempts   []Attempt
	Backups    int
	Detection  string // first failing error text, shown in the audit table
	FinalState LoopState
}

// RunSummary aggregates a whole rescue run for reporting and persistence
type RunSummary struct {
	ID         string
	Root       string
	Provider   ProviderName
	Model      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Targets    []TargetReport
}

// Passed counts targets that ended clean or fixed
func (s *RunSummary) Passed() int {
	n := 0
	for _, t := range s.Targets {
		if t.Status == StatusClean || t.Status == StatusFixed {
			n++
		}
	}
	return n
}

// Failed counts targets that exhausted their attempt budget
func (s *RunSummary) Failed() int {
	n := 0
	for _, t := range s.Targets {
		if t.Status == StatusFailed {
			n++
		}
	}
	return n
}
