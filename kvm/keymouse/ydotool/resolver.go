package ydotool

import (
	"bytes"
	"context"
	"fmt"
	"github.com/allape/gogger"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var l = gogger.New("kvm.keymouse.ydotool")

const (
	DefaultExecutable = "ydotool"
	DefaultCooldown   = 5 * time.Second
)

type State int

const (
	Unknown State = iota
	Available
	Unavailable
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Availability of the executable. Path is set only when Available, Until only when Unavailable.
type Availability struct {
	State State
	Path  string
	Until time.Time
}

func (a Availability) Equal(b Availability) bool {
	return a.State == b.State && a.Path == b.Path && a.Until.Equal(b.Until)
}

func (a Availability) String() string {
	switch a.State {
	case Available:
		return "available at " + a.Path
	case Unavailable:
		return "unavailable until " + a.Until.Format(time.RFC3339Nano)
	default:
		return "unknown"
	}
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// LookPath finds the executable, exec.LookPath by default.
type LookPath func(file string) (string, error)

// Runner runs the executable once. A nil error means exit status 0.
type Runner func(ctx context.Context, path string, args ...string) error

func runProcess(ctx context.Context, path string, args ...string) error {
	stderr := bytes.NewBuffer(nil)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = stderr
	err := cmd.Run()
	if err != nil && stderr.Len() > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return err
}

// Resolver decides whether the executable is usable and runs it.
// A failed probe or a failed run marks it unavailable for Cooldown, after which it is probed again.
type Resolver struct {
	executable string
	cooldown   time.Duration
	clock      Clock
	lookPath   LookPath
	runner     Runner

	locker       sync.Locker
	availability Availability
}

type Options struct {
	Executable string
	Cooldown   time.Duration
	Clock      Clock
	LookPath   LookPath
	Runner     Runner
}

func NewResolver(options *Options) *Resolver {
	if options == nil {
		options = &Options{}
	}
	if options.Executable == "" {
		options.Executable = DefaultExecutable
	}
	if options.Cooldown <= 0 {
		options.Cooldown = DefaultCooldown
	}
	if options.Clock == nil {
		options.Clock = systemClock{}
	}
	if options.LookPath == nil {
		options.LookPath = exec.LookPath
	}
	if options.Runner == nil {
		options.Runner = runProcess
	}

	return &Resolver{
		executable: options.Executable,
		cooldown:   options.Cooldown,
		clock:      options.Clock,
		lookPath:   options.LookPath,
		runner:     options.Runner,
		locker:     &sync.Mutex{},
	}
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// Default returns the process-wide resolver. options only take effect on the first call.
func Default(options *Options) *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver(options)
	})
	return defaultResolver
}

func (r *Resolver) Executable() string {
	return r.executable
}

func (r *Resolver) Availability() Availability {
	r.locker.Lock()
	defer r.locker.Unlock()
	return r.availability
}

// compareAndSwap moves to next only if the state is still old.
func (r *Resolver) compareAndSwap(old, next Availability) bool {
	r.locker.Lock()
	defer r.locker.Unlock()

	if !r.availability.Equal(old) {
		return false
	}

	r.availability = next
	if old.State != next.State {
		l.Verbose().Println(r.executable, "is", next)
	}

	return true
}

func (r *Resolver) unavailableFromNow() Availability {
	return Availability{State: Unavailable, Until: r.clock.Now().Add(r.cooldown)}
}

// Resolve returns the executable's path, probing for it when the state is unknown
// or the cooldown has expired.
func (r *Resolver) Resolve(ctx context.Context) (string, bool) {
	current := r.Availability()

	switch current.State {
	case Available:
		return current.Path, true
	case Unavailable:
		if r.clock.Now().Before(current.Until) {
			return "", false
		}
		r.compareAndSwap(current, Availability{})
	}

	if ctx.Err() != nil {
		return "", false
	}

	var next Availability
	path, err := r.lookPath(r.executable)
	if err != nil {
		next = r.unavailableFromNow()
		l.Warn().Println(r.executable, "not found:", err)
	} else {
		next = Availability{State: Available, Path: path}
		l.Info().Println(r.executable, "found at", path)
	}

	if !r.compareAndSwap(Availability{}, next) {
		// a concurrent probe got there first
		current = r.Availability()
		return current.Path, current.State == Available
	}

	return next.Path, next.State == Available
}

// Execute runs the executable with args. It returns false when the executable is unavailable
// or the run failed, in which case the caller should fall back to another driver.
func (r *Resolver) Execute(ctx context.Context, args ...string) bool {
	path, ok := r.Resolve(ctx)
	if !ok {
		return false
	}

	err := r.runner(ctx, path, args...)
	if err == nil {
		return true
	}

	if ctx.Err() != nil {
		l.Verbose().Println(r.executable, "cancelled:", err)
		return false
	}

	l.Error().Println(r.executable, args, "failed:", err)
	r.compareAndSwap(Availability{State: Available, Path: path}, r.unavailableFromNow())

	return false
}
