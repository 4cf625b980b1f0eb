package requests

// NodeType is the "type" field of a node definition.
type NodeType = string

const (
	DirType    NodeType = "dir"
	FileType   NodeType = "file"
	LinkType   NodeType = "link"
	DeviceType NodeType = "device"
)

// DefinitionsDTO is the top-level layout of a node definition file.
type DefinitionsDTO struct {
	Nodes []NodeRequestDTO `json:"nodes" yaml:"nodes"`
}

// NodeRequestDTO is the JSON/YAML representation of [NodeRequest].
//
// Fields beyond path and type depend on the type:
//
//	file:   contents (a string)
//	link:   target
//	device: device (a registered kind, see the devices package) and config
//	dir:    readonly
type NodeRequestDTO struct {
	Path     string         `json:"path" yaml:"path"`
	Type     NodeType       `json:"type" yaml:"type"`
	UUID     *string        `json:"uuid,omitempty" yaml:"uuid,omitempty"` // Default is a random uuid
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Contents any            `json:"contents,omitempty" yaml:"contents,omitempty"`
	Target   *string        `json:"target,omitempty" yaml:"target,omitempty"`
	Device   *string        `json:"device,omitempty" yaml:"device,omitempty"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	ReadOnly *bool          `json:"readonly,omitempty" yaml:"readonly,omitempty"`

	// Owner is "system" or a numeric user id (Default system)
	Owner any   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Read  *bool `json:"read,omitempty" yaml:"read,omitempty"`
	Write *bool `json:"write,omitempty" yaml:"write,omitempty"`
	// Users holds per-user overrides keyed by user id
	Users map[string]AccessDTO `json:"users,omitempty" yaml:"users,omitempty"`
}

// AccessDTO is the JSON/YAML representation of [treefs.Access].
type AccessDTO struct {
	Read  *bool `json:"read,omitempty" yaml:"read,omitempty"`
	Write *bool `json:"write,omitempty" yaml:"write,omitempty"`
}
