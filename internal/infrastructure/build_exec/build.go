package build_exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tagship/tagship/internal/domain"
)

// Runner invokes the external package build tool. The toolchain handle
// and release version are exported into the tool's environment; the
// tool is expected to leave the artifact at the configured path.
type Runner struct {
	command      []string
	workdir      string
	artifactPath string
}

func New(command []string, workdir, artifactPath string) *Runner {
	return &Runner{command: command, workdir: workdir, artifactPath: artifactPath}
}

func (r *Runner) Build(ctx context.Context, tc domain.Toolchain, v domain.Version) (domain.Artifact, error) {
	if len(r.command) == 0 {
		return domain.Artifact{}, &domain.BuildError{Err: errors.New("no build command configured")}
	}

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Dir = r.workdir
	cmd.Env = append(os.Environ(),
		"TAGSHIP_TOOLCHAIN="+tc.Spec,
		"TAGSHIP_TOOLCHAIN_HOME="+tc.Home,
		"TAGSHIP_VERSION="+v.String(),
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return domain.Artifact{}, &domain.BuildError{Output: tail(out.String()), Err: err}
	}

	if _, err := os.Stat(r.artifactPath); err != nil {
		return domain.Artifact{}, &domain.BuildError{
			Err: fmt.Errorf("build succeeded but artifact missing at %s: %w", r.artifactPath, err),
		}
	}

	return domain.Artifact{Path: r.artifactPath, Version: v}, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 512
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
