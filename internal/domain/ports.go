package domain

import "context"

type ToolchainResolver interface {
	Provision(ctx context.Context, spec string) (Toolchain, error)
}

type ArtifactCache interface {
	Fingerprint(lock []byte) CacheKey
	Lookup(ctx context.Context, key CacheKey) (CacheEntry, bool)
	Store(ctx context.Context, e CacheEntry) error
}

type SecretStore interface {
	Bind(ctx context.Context, name string) (Credential, error)
}

type Builder interface {
	Build(ctx context.Context, tc Toolchain, v Version) (Artifact, error)
}

type Registry interface {
	Publish(ctx context.Context, a Artifact, cred Credential) (PublishReceipt, error)
}

type ReportSink interface {
	Write(ctx context.Context, r RunResult) error
}
