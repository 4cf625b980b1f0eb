package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/devices"
)

// ErrInvalidRequest is returned for node definitions that cannot be built.
var ErrInvalidRequest = errors.New("invalid node request")

// NodeRequest is a validated node definition ready to be applied.
type NodeRequest struct {
	Path     string
	Type     NodeType
	UUID     string
	Node     treefs.FileNode
	ReadOnly bool // freeze the directory once every request is applied
}

// LoadFile reads a node definition file. The format is chosen by extension.
func LoadFile(path string) ([]NodeRequestDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, filepath.Ext(path))
}

// Unmarshal decodes a definition document. ext is a file extension: .yaml
// and .yml select YAML, .json selects JSON.
func Unmarshal(data []byte, ext string) ([]NodeRequestDTO, error) {
	var defs DefinitionsDTO

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definitions: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definitions: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown definitions file extension: %q", ext)
	}

	return defs.Nodes, nil
}

// Convert validates every definition and builds its node. Devices are
// created through reg.
func Convert(dtos []NodeRequestDTO, reg *devices.Registry) ([]*NodeRequest, error) {
	reqs := make([]*NodeRequest, 0, len(dtos))
	for i, dto := range dtos {
		req, err := convertNodeDTO(dto, reg)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, dto.Path, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func convertNodeDTO(dto NodeRequestDTO, reg *devices.Registry) (*NodeRequest, error) {
	if dto.Path == "" {
		return nil, fmt.Errorf("%w: missing path", ErrInvalidRequest)
	}

	attrs, err := convertAttributes(dto)
	if err != nil {
		return nil, err
	}
	req := &NodeRequest{
		Path: dto.Path,
		Type: dto.Type,
		UUID: attrs.Metadata["uuid"].(string),
	}

	switch dto.Type {
	case DirType:
		req.Node = treefs.NewDirectory(nil, attrs, false)
		req.ReadOnly = valueOrDefault(dto.ReadOnly, false)
	case FileType:
		contents, ok := dto.Contents.(string)
		if dto.Contents != nil && !ok {
			return nil, fmt.Errorf("%w: got %T", treefs.ErrInvalidContents, dto.Contents)
		}
		req.Node = treefs.NewFile(contents, attrs)
	case LinkType:
		target := valueOrDefault(dto.Target, "")
		if target == "" {
			return nil, fmt.Errorf("%w: link without target", ErrInvalidRequest)
		}
		req.Node = treefs.NewLink(target, attrs)
	case DeviceType:
		kind := valueOrDefault(dto.Device, "")
		if kind == "" {
			return nil, fmt.Errorf("%w: device without kind", ErrInvalidRequest)
		}
		if reg == nil {
			return nil, fmt.Errorf("%w: no device registry", ErrInvalidRequest)
		}
		dev, err := reg.NewDevice(kind, dto.Config)
		if err != nil {
			return nil, err
		}
		req.Node = dev.WithAttributes(attrs)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, dto.Type)
	}

	if dto.Type != DirType && dto.ReadOnly != nil {
		return nil, fmt.Errorf("%w: readonly only applies to directories", ErrInvalidRequest)
	}
	return req, nil
}

// Conversion logic with defaults in the unmarshaling layer
func convertAttributes(dto NodeRequestDTO) (*treefs.Attributes, error) {
	metadata := make(map[string]any, len(dto.Metadata)+1)
	for k, v := range dto.Metadata {
		switch v.(type) {
		case nil, string, bool, int, int64, uint64, float64:
		default:
			return nil, fmt.Errorf("%w: metadata %q is not a primitive (%T)", ErrInvalidRequest, k, v)
		}
		metadata[k] = v
	}
	if _, ok := metadata["uuid"].(string); !ok || dto.UUID != nil {
		metadata["uuid"] = valueOrDefault(dto.UUID, uuid.New().String())
	}

	attrs := &treefs.Attributes{Metadata: metadata}
	if dto.Owner == nil && dto.Read == nil && dto.Write == nil && len(dto.Users) == 0 {
		return attrs, nil
	}

	owner, err := parseOwner(dto.Owner)
	if err != nil {
		return nil, err
	}
	perms := &treefs.Permissions{
		Owner:  owner,
		Access: treefs.Access{Read: dto.Read, Write: dto.Write},
	}
	if len(dto.Users) > 0 {
		perms.Users = make(map[treefs.Owner]treefs.Access, len(dto.Users))
		for key, acc := range dto.Users {
			id, err := strconv.ParseUint(key, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: user override key %q is not a user id", ErrInvalidRequest, key)
			}
			perms.Users[treefs.Owner(id)] = treefs.Access{Read: acc.Read, Write: acc.Write}
		}
	}
	attrs.Permissions = perms
	return attrs, nil
}

// parseOwner accepts "system", a numeric string, or a whole number as
// decoded by either format. Numeric owners must fit a uid.
func parseOwner(v any) (treefs.Owner, error) {
	switch o := v.(type) {
	case nil:
		return treefs.SystemOwner, nil
	case string:
		if o == treefs.SystemOwner.String() {
			return treefs.SystemOwner, nil
		}
		id, err := strconv.ParseUint(o, 10, 32)
		if err == nil {
			return treefs.Owner(id), nil
		}
	case int:
		if o >= 0 && int64(o) <= math.MaxUint32 {
			return treefs.Owner(o), nil
		}
	case float64:
		if o >= 0 && o == math.Trunc(o) && o <= math.MaxUint32 {
			return treefs.Owner(o), nil
		}
	}
	return 0, fmt.Errorf("%w: owner %v", ErrInvalidRequest, v)
}

func valueOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr != nil {
		return *ptr
	}
	return defaultVal
}
