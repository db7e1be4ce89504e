// Package errclass maps low-level failures onto the small taxonomy the search
// engines use to decide between retrying, falling back, skipping and
// propagating.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
)

// Kind is a failure category
type Kind int

const (
	None Kind = iota
	ToolUnavailable
	Timeout
	PermissionDenied
	IOFailure
	BackendUnavailable
	Unknown
)

// Sentinel errors raised by the engines themselves
var (
	ErrToolUnavailable    = errors.New("accelerated matcher unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrBackendUnavailable = errors.New("embedding backend unavailable")
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case ToolUnavailable:
		return "tool_unavailable"
	case Timeout:
		return "timeout"
	case PermissionDenied:
		return "permission_denied"
	case IOFailure:
		return "io_failure"
	case BackendUnavailable:
		return "backend_unavailable"
	default:
		return "unknown"
	}
}

// Fallback reports whether the failure should switch the lexical engine to
// the in-process scanner
func (k Kind) Fallback() bool {
	return k == ToolUnavailable || k == Timeout
}

// Skippable reports whether the failure is local to one file or chunk
func (k Kind) Skippable() bool {
	return k == PermissionDenied || k == IOFailure
}

// Classification is the result of Classify
type Classification struct {
	Kind    Kind
	Message string
	Err     error
}

func (c Classification) String() string {
	return c.Message
}

// Classify maps err onto a Kind and a short human-readable message.
// It is a pure function.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: None}
	}

	kind := kindOf(err)
	return Classification{
		Kind:    kind,
		Message: message(kind, err),
		Err:     err,
	}
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrToolUnavailable), errors.Is(err, exec.ErrNotFound):
		return ToolUnavailable
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return Timeout
	case errors.Is(err, ErrBackendUnavailable):
		return BackendUnavailable
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	}

	var pathErr *fs.PathError
	var sysErr *os.SyscallError
	switch {
	case errors.As(err, &pathErr),
		errors.As(err, &sysErr),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.EIO):
		return IOFailure
	}

	return Unknown
}

func message(kind Kind, err error) string {
	switch kind {
	case ToolUnavailable:
		return "ripgrep not found; searching with the built-in scanner"
	case Timeout:
		return "search timed out; narrow the search path and try again"
	case PermissionDenied:
		return "some files are not readable; searched what is accessible"
	case IOFailure:
		return fmt.Sprintf("system error: %v", err)
	case BackendUnavailable:
		return "semantic search unavailable; showing text matches only"
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

// Retryable reports whether a process launch failure is worth retrying.
// Resource exhaustion is transient; a missing or non-executable binary is not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) || errors.Is(err, syscall.ENOMEM) {
		return true
	}
	switch kindOf(err) {
	case ToolUnavailable, PermissionDenied, BackendUnavailable:
		return false
	}
	return true
}

// Aggregate collects skipped per-file failures so they can be reported as a
// single warning instead of one message per file
type Aggregate struct {
	counts map[Kind]int
	total  int
}

// Add records a failure
func (a *Aggregate) Add(err error) Classification {
	c := Classify(err)
	if c.Kind == None {
		return c
	}
	if a.counts == nil {
		a.counts = make(map[Kind]int)
	}
	a.counts[c.Kind]++
	a.total++
	return c
}

// Len returns the number of recorded failures
func (a *Aggregate) Len() int {
	return a.total
}

// Warning renders the aggregate, or "" when nothing was recorded
func (a *Aggregate) Warning() string {
	if a.total == 0 {
		return ""
	}
	kinds := make([]Kind, 0, len(a.counts))
	for k := range a.counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", a.counts[k], strings.ReplaceAll(k.String(), "_", " ")))
	}
	noun := "files"
	if a.total == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s skipped (%s)", a.total, noun, strings.Join(parts, ", "))
}
