package domain

import "fmt"

// ProvisionError: the requested toolchain could not be resolved or
// installed. Fatal; re-running the whole pipeline is the recovery path.
type ProvisionError struct {
	Spec string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision toolchain %q: %v", e.Spec, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// CacheError: a cache store fault. Never fatal — the sequencer logs it
// and proceeds as if the cache had missed.
type CacheError struct {
	Op  string
	Key CacheKey
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// BuildError: the external build tool failed. Fatal.
type BuildError struct {
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("build: %v: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("build: %v", e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// AuthError: the named secret is missing or the store is unreachable.
// Fatal, no retry.
type AuthError struct {
	Name string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bind secret %q: %v", e.Name, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

type PublishKind string

const (
	// PublishAlreadyExists is terminal, never treated as success: a
	// duplicate submission for a fixed version must surface, not be
	// masked as an accidental double-publish.
	PublishAlreadyExists PublishKind = "version-exists"
	PublishAuthRejected  PublishKind = "auth-rejected"
	PublishValidation    PublishKind = "validation-failed"
	PublishUnavailable   PublishKind = "registry-unavailable"
)

type PublishError struct {
	Kind    PublishKind
	Version string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish %s: %s: %v", e.Version, e.Kind, e.Err)
	}
	return fmt.Sprintf("publish %s: %s", e.Version, e.Kind)
}

func (e *PublishError) Unwrap() error { return e.Err }
