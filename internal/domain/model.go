package domain

import "fmt"

type RunStatus string

const (
	StatusPublished RunStatus = "published"
	StatusNoop      RunStatus = "no-op"
	StatusFailed    RunStatus = "failed"
)

type StepName string

const (
	StepMatch       StepName = "match"
	StepProvision   StepName = "provision"
	StepCacheLookup StepName = "cache-lookup"
	StepBuild       StepName = "build"
	StepCacheStore  StepName = "cache-store"
	StepBind        StepName = "bind-credential"
	StepPublish     StepName = "publish"
)

// TriggerEvent is one push event as delivered by the trigger source.
// Consumed exactly once per run.
type TriggerEvent struct {
	Ref string
}

type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

type CacheKey string

// CacheEntry is owned by the artifact cache: written at most once per
// key per run, read any number of times.
type CacheEntry struct {
	Key     CacheKey
	Paths   []string
	Payload []byte
}

// Toolchain is the handle returned by a successful provision.
type Toolchain struct {
	Spec string
	Home string
}

// Artifact is the package produced by the build step. Opaque to the
// pipeline beyond its location on disk.
type Artifact struct {
	Path      string
	Version   Version
	FromCache bool
}

// Credential is a run-scoped registry token. It lives in process
// memory only, is handed to the publisher and nothing else, and
// redacts itself everywhere it could leak into logs or files.
type Credential struct {
	token string
}

func NewCredential(token string) Credential { return Credential{token: token} }

func (c Credential) Token() string { return c.token }
func (c Credential) Empty() bool   { return c.token == "" }

func (c Credential) String() string   { return "[redacted]" }
func (c Credential) GoString() string { return "domain.Credential{[redacted]}" }

func (c Credential) MarshalJSON() ([]byte, error) { return []byte(`"[redacted]"`), nil }

type PublishReceipt struct {
	ID       string
	Version  string
	Location string
}

type StepRecord struct {
	Step    StepName `json:"step"`
	Outcome string   `json:"outcome"`
	Detail  string   `json:"detail,omitempty"`
}

// RunResult is finalized by the sequencer at pipeline termination.
type RunResult struct {
	Ref        string
	Version    Version
	Status     RunStatus
	FailedStep StepName
	Err        error
	Receipt    PublishReceipt
	Steps      []StepRecord
	Started    int64
	Finished   int64
}
