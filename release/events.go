package release

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events during a release run.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventManifestSync is emitted for each manifest after synchronization,
// rewritten or already up to date.
type EventManifestSync struct {
	Path      string `json:"path,omitempty"`
	OldDigest string `json:"old_digest,omitempty"`
	NewDigest string `json:"new_digest,omitempty"`
	Changed   bool   `json:"changed,omitempty"`
}

func (e EventManifestSync) String() string { return jsonString(e) }

// EventCheckSuccess is emitted when the consistency-check command succeeds.
type EventCheckSuccess struct{}

func (e EventCheckSuccess) String() string { return jsonString(e) }

// EventVersionControlSuccess is emitted after a version-control command.
type EventVersionControlSuccess struct {
	Action string `json:"action,omitempty"`
}

func (e EventVersionControlSuccess) String() string { return jsonString(e) }

// EventArtifactVerified is emitted when a built artifact matches its
// synchronized manifest.
type EventArtifactVerified struct {
	Package string `json:"package,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (e EventArtifactVerified) String() string { return jsonString(e) }

// EventPublishSuccess is emitted after each successful publish step.
type EventPublishSuccess struct {
	Package  string `json:"package,omitempty"`
	Version  string `json:"version,omitempty"`
	Manifest string `json:"manifest,omitempty"`
	Artifact string `json:"artifact,omitempty"`
}

func (e EventPublishSuccess) String() string { return jsonString(e) }

// EventSummaryWrite is emitted when the release summary is written.
type EventSummaryWrite struct {
	Path   string `json:"path,omitempty"`
	Signed bool   `json:"signed,omitempty"`
}

func (e EventSummaryWrite) String() string { return jsonString(e) }
