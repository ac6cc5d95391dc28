package toolchain_exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tagship/tagship/internal/domain"
)

// Resolver installs a pinned toolchain by shelling out to the
// configured installer command (e.g. ["rustup", "toolchain",
// "install"]) with the version spec appended. A marker file under
// stateDir makes a repeat provision of the same spec a no-op.
type Resolver struct {
	installCmd []string
	stateDir   string
}

func New(installCmd []string, stateDir string) *Resolver {
	return &Resolver{installCmd: installCmd, stateDir: stateDir}
}

func (r *Resolver) Provision(ctx context.Context, spec string) (domain.Toolchain, error) {
	if spec == "" {
		return domain.Toolchain{}, &domain.ProvisionError{Spec: spec, Err: errors.New("empty toolchain spec")}
	}
	if len(r.installCmd) == 0 {
		return domain.Toolchain{}, &domain.ProvisionError{Spec: spec, Err: errors.New("no installer command configured")}
	}

	tc := domain.Toolchain{Spec: spec, Home: r.stateDir}

	marker := r.markerPath(spec)
	if b, err := os.ReadFile(marker); err == nil && strings.TrimSpace(string(b)) == spec {
		return tc, nil
	}

	args := append(append([]string(nil), r.installCmd[1:]...), spec)
	cmd := exec.CommandContext(ctx, r.installCmd[0], args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if msg := tail(out.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return domain.Toolchain{}, &domain.ProvisionError{Spec: spec, Err: err}
	}

	if err := r.writeMarker(marker, spec); err != nil {
		// The toolchain is installed; a lost marker only costs a
		// redundant install next run.
		return tc, nil
	}
	return tc, nil
}

func (r *Resolver) markerPath(spec string) string {
	safe := strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == ':' {
			return '_'
		}
		return c
	}, spec)
	return filepath.Join(r.stateDir, safe+".installed")
}

func (r *Resolver) writeMarker(path, spec string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(spec+"\n"), 0o644)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 512
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
