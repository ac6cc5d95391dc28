package application

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagship/tagship/internal/domain"
	"go.uber.org/zap"
)

type seqFixture struct {
	tc      *domain.MockResolver
	cache   *domain.MockCache
	secrets *domain.MockSecrets
	build   *domain.MockBuilder
	reg     *domain.MockRegistry
	report  *domain.MockReport
	spec    RunSpec
}

func newFixture(t *testing.T) *seqFixture {
	t.Helper()
	tmp := t.TempDir()

	lock := filepath.Join(tmp, "deps.lock")
	if err := os.WriteFile(lock, []byte("lock-v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	artifact := filepath.Join(tmp, "pkg.crate")
	if err := os.WriteFile(artifact, []byte("artifact-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	return &seqFixture{
		tc:      &domain.MockResolver{},
		cache:   &domain.MockCache{},
		secrets: &domain.MockSecrets{Token: "tok"},
		build:   &domain.MockBuilder{Artifact: domain.Artifact{Path: artifact}},
		reg:     &domain.MockRegistry{Receipt: domain.PublishReceipt{ID: "r-1", Location: "https://reg/pkg"}},
		report:  &domain.MockReport{},
		spec: RunSpec{
			Toolchain:    "1.75.0",
			Lockfile:     lock,
			ArtifactPath: artifact,
			SecretName:   "registry-token",
		},
	}
}

func (f *seqFixture) sequencer() *Sequencer {
	return NewSequencer(zap.NewNop(), f.tc, f.cache, f.secrets, f.build, f.reg, f.report, f.spec)
}

func TestRun_PublishSuccess(t *testing.T) {
	f := newFixture(t)

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "refs/tags/v1.2.3"})

	if res.Status != domain.StatusPublished {
		t.Fatalf("expected published, got %s (err: %v)", res.Status, res.Err)
	}
	if res.Version.String() != "v1.2.3" {
		t.Errorf("expected v1.2.3, got %s", res.Version)
	}
	if f.reg.Called != 1 {
		t.Errorf("expected 1 publish, got %d", f.reg.Called)
	}
	if f.cache.Stores != 1 {
		t.Errorf("expected 1 cache store, got %d", f.cache.Stores)
	}
	if len(f.report.Results) != 1 {
		t.Errorf("expected 1 report, got %d", len(f.report.Results))
	}
}

func TestRun_NonTagRefIsNoop(t *testing.T) {
	f := newFixture(t)

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "main"})

	if res.Status != domain.StatusNoop {
		t.Fatalf("expected no-op, got %s", res.Status)
	}
	if f.tc.Called != 0 || f.build.Called != 0 || f.reg.Called != 0 {
		t.Errorf("expected no steps after mismatch, got provision=%d build=%d publish=%d",
			f.tc.Called, f.build.Called, f.reg.Called)
	}
}

func TestRun_AlreadyPublishedIsTerminalFailure(t *testing.T) {
	f := newFixture(t)
	f.reg.Err = &domain.PublishError{Kind: domain.PublishAlreadyExists, Version: "v2.0.0"}

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v2.0.0"})

	if res.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if res.FailedStep != domain.StepPublish {
		t.Errorf("expected failure at publish, got %s", res.FailedStep)
	}
	var pe *domain.PublishError
	if !errors.As(res.Err, &pe) || pe.Kind != domain.PublishAlreadyExists {
		t.Errorf("expected AlreadyExists publish error, got %v", res.Err)
	}
}

func TestRun_CacheStoreFaultDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t)
	f.cache.StoreErr = &domain.CacheError{Op: "store", Err: errors.New("quota")}

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if res.Status != domain.StatusPublished {
		t.Fatalf("cache fault must not fail the run, got %s (err: %v)", res.Status, res.Err)
	}

	downgraded := false
	for _, s := range res.Steps {
		if s.Step == domain.StepCacheStore && s.Outcome == "downgraded" {
			downgraded = true
		}
	}
	if !downgraded {
		t.Error("expected a downgraded cache-store step record")
	}
}

func TestRun_CacheHitSkipsBuild(t *testing.T) {
	f := newFixture(t)
	payload := []byte("cached-artifact")
	key := f.cache.Fingerprint([]byte("lock-v1"))
	f.cache.Entries = map[domain.CacheKey]domain.CacheEntry{
		key: {Key: key, Paths: []string{f.spec.ArtifactPath}, Payload: payload},
	}

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if res.Status != domain.StatusPublished {
		t.Fatalf("expected published, got %s (err: %v)", res.Status, res.Err)
	}
	if f.build.Called != 0 {
		t.Errorf("expected build to be skipped on hit, called %d times", f.build.Called)
	}

	restored, err := os.ReadFile(f.spec.ArtifactPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored, payload) {
		t.Errorf("restored artifact differs from cached payload: %q", restored)
	}
}

func TestRun_WarmAndColdCacheProduceSameReceipt(t *testing.T) {
	f := newFixture(t)

	cold := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})
	warm := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if cold.Status != domain.StatusPublished || warm.Status != domain.StatusPublished {
		t.Fatalf("expected both published, got %s / %s", cold.Status, warm.Status)
	}
	if cold.Receipt != warm.Receipt {
		t.Errorf("receipts differ across cache temperature: %+v vs %+v", cold.Receipt, warm.Receipt)
	}
	if f.build.Called != 1 {
		t.Errorf("expected exactly one build across both runs, got %d", f.build.Called)
	}
}

func TestRun_ProvisionFailureHaltsRun(t *testing.T) {
	f := newFixture(t)
	f.tc.Err = &domain.ProvisionError{Spec: "1.75.0", Err: errors.New("unresolvable")}

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if res.Status != domain.StatusFailed || res.FailedStep != domain.StepProvision {
		t.Fatalf("expected failure at provision, got %s at %s", res.Status, res.FailedStep)
	}
	if f.build.Called != 0 || f.secrets.Called != 0 || f.reg.Called != 0 {
		t.Error("no step after provision may run once it fails")
	}
}

func TestRun_AuthFailureSkipsPublish(t *testing.T) {
	f := newFixture(t)
	f.secrets.Err = &domain.AuthError{Name: "registry-token", Err: errors.New("missing")}

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if res.FailedStep != domain.StepBind {
		t.Fatalf("expected failure at bind-credential, got %s", res.FailedStep)
	}
	if f.reg.Called != 0 {
		t.Errorf("publish must not run without a credential, called %d times", f.reg.Called)
	}
}

func TestRun_DryRunStopsBeforePublish(t *testing.T) {
	f := newFixture(t)
	f.spec.DryRun = true

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if res.Status != domain.StatusNoop {
		t.Fatalf("expected no-op, got %s", res.Status)
	}
	if f.secrets.Called != 1 {
		t.Errorf("dry run should still bind the credential, called %d times", f.secrets.Called)
	}
	if f.reg.Called != 0 {
		t.Errorf("dry run must not publish, called %d times", f.reg.Called)
	}
}

func TestRun_CredentialReachesOnlyTheRegistry(t *testing.T) {
	f := newFixture(t)
	f.secrets.Token = "s3cret"

	res := f.sequencer().Run(context.Background(), domain.TriggerEvent{Ref: "v1.2.3"})

	if res.Status != domain.StatusPublished {
		t.Fatalf("expected published, got %s (err: %v)", res.Status, res.Err)
	}
	if len(f.reg.Tokens) != 1 || f.reg.Tokens[0] != "s3cret" {
		t.Errorf("registry should receive the bound token once, got %v", f.reg.Tokens)
	}
	for _, r := range f.report.Results {
		for _, s := range r.Steps {
			if s.Detail == "s3cret" {
				t.Error("credential leaked into the step log")
			}
		}
	}
}
