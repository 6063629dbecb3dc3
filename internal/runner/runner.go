// Package runner detects target languages, builds run commands and
// executes them with a bounded timeout.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// timeoutExitCode mirrors the shell convention for killed-by-timeout
const timeoutExitCode = 124

// Runner executes a target and captures the outcome of the attempt
type Runner struct {
	timeout   time.Duration
	overrides map[string][]string // language -> replacement command
	maxOutput int
}

// Option configures a Runner
type Option func(*Runner)

// WithTimeout sets the per-run timeout
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithCommandOverrides replaces the built-in run command for a language.
// The placeholder {file} expands to the target path.
func WithCommandOverrides(overrides map[string][]string) Option {
	return func(r *Runner) { r.overrides = overrides }
}

// WithMaxOutput caps the captured output size in bytes
func WithMaxOutput(n int) Option {
	return func(r *Runner) { r.maxOutput = n }
}

// New creates a Runner
func New(opts ...Option) *Runner {
	r := &Runner{
		timeout:   10 * time.Second,
		maxOutput: 1 << 20,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the target file and returns the Run Result.
// Static targets (yaml, Dockerfile, html) get a lint pass instead of
// execution. An unknown language is a LanguageDetectionFailure.
func (r *Runner) Run(ctx context.Context, path string) (domain.RunResult, error) {
	lang := DetectFile(path)
	if lang == domain.LangUnknown {
		return domain.RunResult{}, domain.Errorf(domain.ErrLanguageDetection,
			"no supported language for %s", path)
	}
	return r.RunAs(ctx, path, lang)
}

// RunAs executes the target as the given language
func (r *Runner) RunAs(ctx context.Context, path string, lang domain.Language) (domain.RunResult, error) {
	if lang == domain.LangStatic {
		return lintStatic(path)
	}

	argv, err := r.command(path, lang)
	if err != nil {
		return domain.RunResult{}, err
	}

	// Compiled languages build first; a compile failure is a failing
	// run result, not an error.
	if res, done, err := r.compileIfNeeded(ctx, path, lang); err != nil {
		return domain.RunResult{}, err
	} else if done {
		return res, nil
	}

	return r.execute(ctx, path, argv)
}

// command resolves the run command for a language, honoring overrides
func (r *Runner) command(path string, lang domain.Language) ([]string, error) {
	if cmd, ok := r.overrides[string(lang)]; ok {
		return expandArgs(cmd, path), nil
	}

	switch lang {
	case domain.LangPython:
		return []string{"python3", "-u", path}, nil
	case domain.LangJavaScript:
		return []string{"node", path}, nil
	case domain.LangGo:
		return []string{"go", "run", path}, nil
	case domain.LangJava:
		return []string{"java", path}, nil
	case domain.LangPHP:
		return []string{"php", path}, nil
	case domain.LangRuby:
		return []string{"ruby", path}, nil
	case domain.LangShell:
		return []string{"bash", path}, nil
	case domain.LangRust, domain.LangCpp:
		// Run the compiled binary; compileIfNeeded produced it
		return []string{binaryPath(path)}, nil
	}
	return nil, domain.Errorf(domain.ErrLanguageDetection, "no run command for language %q", lang)
}

// compileIfNeeded compiles rust/cpp targets. done=true means the result
// is final (compile failed) and the binary should not be run.
func (r *Runner) compileIfNeeded(ctx context.Context, path string, lang domain.Language) (domain.RunResult, bool, error) {
	var argv []string
	switch lang {
	case domain.LangRust:
		argv = []string{"rustc", path, "-o", binaryPath(path)}
	case domain.LangCpp:
		argv = []string{"g++", path, "-o", binaryPath(path)}
	default:
		return domain.RunResult{}, false, nil
	}

	res, err := r.execute(ctx, path, argv)
	if err != nil {
		return domain.RunResult{}, false, err
	}
	if !res.Passed() {
		if res.Output == "" {
			res.Output = fmt.Sprintf("%s compile failed", lang)
		}
		return res, true, nil
	}
	return domain.RunResult{}, false, nil
}

// execute runs argv with the configured timeout and captures output
func (r *Runner) execute(ctx context.Context, path string, argv []string) (domain.RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = filepath.Dir(path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := domain.RunResult{Duration: elapsed}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = timeoutExitCode
		slog.Warn("run timed out", "path", path, "timeout", r.timeout)
		return res, nil
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Command could not start (e.g. toolchain missing)
			return domain.RunResult{}, fmt.Errorf("running %s: %w", argv[0], err)
		}
	}

	out := strings.TrimSpace(stderr.String())
	if out == "" {
		out = strings.TrimSpace(stdout.String())
	}
	if r.maxOutput > 0 && len(out) > r.maxOutput {
		out = out[len(out)-r.maxOutput:]
	}
	res.Output = out

	return res, nil
}

// lintStatic checks config-like files without executing anything.
// Hardcoded secrets count as a failing run.
func lintStatic(path string) (domain.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("reading %s: %w", path, err)
	}

	content := string(data)
	if strings.Contains(content, "password:") && strings.Contains(content, "Secret") {
		return domain.RunResult{
			ExitCode: 1,
			Output:   "Hardcoded Secret",
		}, nil
	}

	return domain.RunResult{ExitCode: 0, Output: "Valid"}, nil
}

// binaryPath returns the compile-output path for a source file. The
// binary lands outside the project tree so a file watcher on the
// project never sees the artifact of its own sweep.
func binaryPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := fnv.New32a()
	h.Write([]byte(abs))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(os.TempDir(), fmt.Sprintf("bugrescue_%s_%08x", name, h.Sum32()))
}

// expandArgs substitutes {file} in an override command
func expandArgs(argv []string, path string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, "{file}", path)
	}
	return out
}
