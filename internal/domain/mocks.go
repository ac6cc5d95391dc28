package domain

import (
	"context"
)

type MockResolver struct {
	Toolchain Toolchain
	Err       error
	Called    int
}

func (m *MockResolver) Provision(ctx context.Context, spec string) (Toolchain, error) {
	m.Called++
	if m.Err != nil {
		return Toolchain{}, m.Err
	}
	if m.Toolchain.Spec == "" {
		return Toolchain{Spec: spec}, nil
	}
	return m.Toolchain, nil
}

type MockCache struct {
	Entries  map[CacheKey]CacheEntry
	StoreErr error
	Lookups  int
	Stores   int
}

func (c *MockCache) Fingerprint(lock []byte) CacheKey {
	return CacheKey("fp-" + string(lock))
}

func (c *MockCache) Lookup(ctx context.Context, key CacheKey) (CacheEntry, bool) {
	c.Lookups++
	e, ok := c.Entries[key]
	return e, ok
}

func (c *MockCache) Store(ctx context.Context, e CacheEntry) error {
	c.Stores++
	if c.StoreErr != nil {
		return c.StoreErr
	}
	if c.Entries == nil {
		c.Entries = make(map[CacheKey]CacheEntry)
	}
	c.Entries[e.Key] = e
	return nil
}

type MockSecrets struct {
	Token  string
	Err    error
	Called int
}

func (s *MockSecrets) Bind(ctx context.Context, name string) (Credential, error) {
	s.Called++
	if s.Err != nil {
		return Credential{}, s.Err
	}
	return NewCredential(s.Token), nil
}

type MockBuilder struct {
	Artifact Artifact
	Err      error
	Called   int
}

func (b *MockBuilder) Build(ctx context.Context, tc Toolchain, v Version) (Artifact, error) {
	b.Called++
	if b.Err != nil {
		return Artifact{}, b.Err
	}
	a := b.Artifact
	a.Version = v
	return a, nil
}

type MockRegistry struct {
	Receipt PublishReceipt
	Err     error
	Called  int
	Tokens  []string
}

func (r *MockRegistry) Publish(ctx context.Context, a Artifact, cred Credential) (PublishReceipt, error) {
	r.Called++
	r.Tokens = append(r.Tokens, cred.Token())
	if r.Err != nil {
		return PublishReceipt{}, r.Err
	}
	rec := r.Receipt
	if rec.Version == "" {
		rec.Version = a.Version.String()
	}
	return rec, nil
}

type MockReport struct {
	Results []RunResult
	Err     error
}

func (m *MockReport) Write(ctx context.Context, r RunResult) error {
	if m.Err != nil {
		return m.Err
	}
	m.Results = append(m.Results, r)
	return nil
}
