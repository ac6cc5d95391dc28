package application

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/tagship/tagship/internal/domain"
	"go.uber.org/zap"
)

// RunSpec carries the per-run configuration the sequencer threads
// through its steps. Nothing here is ambient process state: the
// credential in particular is bound inside Run and handed only to the
// registry.
type RunSpec struct {
	Toolchain    string
	Lockfile     string
	ArtifactPath string
	SecretName   string
	DryRun       bool
}

type Sequencer struct {
	log     *zap.Logger
	tc      domain.ToolchainResolver
	cache   domain.ArtifactCache
	secrets domain.SecretStore
	build   domain.Builder
	reg     domain.Registry
	report  domain.ReportSink
	spec    RunSpec
}

func NewSequencer(
	log *zap.Logger,
	tc domain.ToolchainResolver,
	cache domain.ArtifactCache,
	secrets domain.SecretStore,
	build domain.Builder,
	reg domain.Registry,
	report domain.ReportSink,
	spec RunSpec,
) *Sequencer {
	return &Sequencer{
		log: log, tc: tc, cache: cache, secrets: secrets,
		build: build, reg: reg, report: report, spec: spec,
	}
}

// Run executes the pipeline for one trigger event, in fixed order:
// match, provision, cache lookup, build, cache store (best-effort),
// bind credential, publish. The first fatal error halts the run; a
// cache fault is logged and downgraded to a miss. No step re-enters a
// prior one.
func (s *Sequencer) Run(ctx context.Context, ev domain.TriggerEvent) domain.RunResult {
	res := domain.RunResult{Ref: ev.Ref, Started: time.Now().Unix()}

	v, ok := domain.MatchTag(ev.Ref)
	if !ok {
		// Not a failure: a non-release ref means there is nothing to do.
		s.log.Info("ref is not a release tag, nothing to do", zap.String("ref", ev.Ref))
		res.Status = domain.StatusNoop
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepMatch, Outcome: "no-op", Detail: ev.Ref,
		})
		return s.finalize(ctx, res)
	}
	res.Version = v
	res.Steps = append(res.Steps, domain.StepRecord{
		Step: domain.StepMatch, Outcome: "ok", Detail: v.String(),
	})
	s.log.Info("release trigger matched", zap.String("version", v.String()))

	tc, err := s.tc.Provision(ctx, s.spec.Toolchain)
	if err != nil {
		return s.fail(ctx, res, domain.StepProvision, err)
	}
	res.Steps = append(res.Steps, domain.StepRecord{
		Step: domain.StepProvision, Outcome: "ok", Detail: tc.Spec,
	})

	art, key, hit := s.lookup(ctx, &res, v)

	if !hit {
		art, err = s.build.Build(ctx, tc, v)
		if err != nil {
			return s.fail(ctx, res, domain.StepBuild, err)
		}
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepBuild, Outcome: "ok", Detail: art.Path,
		})
		s.store(ctx, &res, key, art)
	} else {
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepBuild, Outcome: "cached",
		})
	}

	cred, err := s.secrets.Bind(ctx, s.spec.SecretName)
	if err != nil {
		return s.fail(ctx, res, domain.StepBind, err)
	}
	res.Steps = append(res.Steps, domain.StepRecord{
		Step: domain.StepBind, Outcome: "ok", Detail: s.spec.SecretName,
	})

	if s.spec.DryRun {
		s.log.Info("dry run: skipping publish", zap.String("version", v.String()))
		res.Status = domain.StatusNoop
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepPublish, Outcome: "skipped", Detail: "dry-run",
		})
		return s.finalize(ctx, res)
	}

	receipt, err := s.reg.Publish(ctx, art, cred)
	if err != nil {
		return s.fail(ctx, res, domain.StepPublish, err)
	}

	res.Receipt = receipt
	res.Status = domain.StatusPublished
	res.Steps = append(res.Steps, domain.StepRecord{
		Step: domain.StepPublish, Outcome: "ok", Detail: receipt.Location,
	})
	s.log.Info("published",
		zap.String("version", v.String()),
		zap.String("receipt", receipt.ID),
	)
	return s.finalize(ctx, res)
}

// lookup consults the cache when a lockfile is available. Any fault on
// this path degrades to a miss: the cache is never the source of truth.
func (s *Sequencer) lookup(ctx context.Context, res *domain.RunResult, v domain.Version) (domain.Artifact, domain.CacheKey, bool) {
	lock, err := os.ReadFile(s.spec.Lockfile)
	if err != nil {
		s.log.Warn("lockfile unreadable, running uncached",
			zap.String("lockfile", s.spec.Lockfile), zap.Error(err))
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepCacheLookup, Outcome: "miss", Detail: "no lockfile",
		})
		return domain.Artifact{}, "", false
	}

	key := s.cache.Fingerprint(lock)
	e, ok := s.cache.Lookup(ctx, key)
	if !ok {
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepCacheLookup, Outcome: "miss", Detail: string(key),
		})
		return domain.Artifact{}, key, false
	}

	if err := restore(e, s.spec.ArtifactPath); err != nil {
		s.log.Warn("cache entry restore failed, treating as miss",
			zap.String("key", string(key)), zap.Error(err))
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepCacheLookup, Outcome: "miss", Detail: "restore failed",
		})
		return domain.Artifact{}, key, false
	}

	res.Steps = append(res.Steps, domain.StepRecord{
		Step: domain.StepCacheLookup, Outcome: "hit", Detail: string(key),
	})
	s.log.Info("cache hit", zap.String("key", string(key)))
	return domain.Artifact{Path: s.spec.ArtifactPath, Version: v, FromCache: true}, key, true
}

// store saves the freshly built artifact under the lockfile key.
// Best-effort: a CacheError is logged, never propagated.
func (s *Sequencer) store(ctx context.Context, res *domain.RunResult, key domain.CacheKey, art domain.Artifact) {
	if key == "" {
		return
	}

	payload, err := os.ReadFile(art.Path)
	if err != nil {
		s.log.Warn("artifact unreadable, skipping cache store",
			zap.String("path", art.Path), zap.Error(err))
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepCacheStore, Outcome: "skipped",
		})
		return
	}

	e := domain.CacheEntry{Key: key, Paths: []string{art.Path}, Payload: payload}
	if err := s.cache.Store(ctx, e); err != nil {
		s.log.Warn("cache store failed, continuing", zap.String("key", string(key)), zap.Error(err))
		res.Steps = append(res.Steps, domain.StepRecord{
			Step: domain.StepCacheStore, Outcome: "downgraded", Detail: err.Error(),
		})
		return
	}
	res.Steps = append(res.Steps, domain.StepRecord{
		Step: domain.StepCacheStore, Outcome: "ok", Detail: string(key),
	})
}

func (s *Sequencer) fail(ctx context.Context, res domain.RunResult, step domain.StepName, err error) domain.RunResult {
	res.Status = domain.StatusFailed
	res.FailedStep = step
	res.Err = err
	res.Steps = append(res.Steps, domain.StepRecord{
		Step: step, Outcome: "error", Detail: err.Error(),
	})
	s.log.Error("step failed",
		zap.String("step", string(step)),
		zap.String("ref", res.Ref),
		zap.Error(err),
	)
	return s.finalize(ctx, res)
}

func (s *Sequencer) finalize(ctx context.Context, res domain.RunResult) domain.RunResult {
	res.Finished = time.Now().Unix()
	if s.report != nil {
		if err := s.report.Write(ctx, res); err != nil {
			s.log.Warn("run report write failed", zap.Error(err))
		}
	}
	return res
}

func restore(e domain.CacheEntry, path string) error {
	if path == "" {
		return errors.New("no artifact path configured")
	}
	return os.WriteFile(path, e.Payload, 0o644)
}
