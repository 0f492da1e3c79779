// descriptor.go parses the orchestration descriptor (the docker compose
// YAML file). Only the fields stackrun needs are decoded; everything else
// in the file is ignored, so descriptors using newer compose features still
// load.
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"
)

// Descriptor is the subset of a compose file that stackrun reads.
type Descriptor struct {
	// Path is the absolute path the descriptor was loaded from.
	Path string `yaml:"-"`

	// Name is the optional top-level project name.
	Name string `yaml:"name,omitempty"`

	// Services maps compose service names to their definitions.
	Services map[string]Service `yaml:"services"`

	// Volumes maps top-level volume keys to their definitions. A volume
	// declared as a bare key ("mongo-data:") decodes to a nil *Volume.
	Volumes map[string]*Volume `yaml:"volumes,omitempty"`
}

// Service is the subset of a compose service definition stackrun reads.
type Service struct {
	Image         string    `yaml:"image,omitempty"`
	ContainerName string    `yaml:"container_name,omitempty"`
	Build         yaml.Node `yaml:"build,omitempty"`
	Ports         Ports     `yaml:"ports,omitempty"`
}

// HasBuild reports whether the service declares a build section.
func (s Service) HasBuild() bool {
	return s.Build.Kind != 0
}

// Volume is a top-level named volume definition.
type Volume struct {
	// Name overrides the project-scoped volume name when set.
	Name string `yaml:"name,omitempty"`

	// External volumes are not created or removed by compose.
	External bool `yaml:"external,omitempty"`
}

// PortMapping is one published port of a service.
type PortMapping struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Protocol      string

	// Raw holds the original short-syntax entry when it could not be parsed,
	// typically because it relies on variable interpolation.
	Raw string
}

// Published reports whether the mapping binds a fixed host port.
func (p PortMapping) Published() bool {
	return p.HostPort > 0
}

// String renders the mapping in compose short syntax.
func (p PortMapping) String() string {
	if p.Raw != "" {
		return p.Raw
	}
	s := strconv.Itoa(p.ContainerPort) + "/" + p.Protocol
	if p.HostPort > 0 {
		s = strconv.Itoa(p.HostPort) + ":" + s
	}
	if p.HostIP != "" {
		s = p.HostIP + ":" + s
	}
	return s
}

// Ports decodes both the short ("8080:80/tcp") and long
// ({target: 80, published: 8080}) compose port syntaxes.
type Ports []PortMapping

// longPort is the compose long port syntax.
type longPort struct {
	Target    int    `yaml:"target"`
	Published string `yaml:"published"`
	HostIP    string `yaml:"host_ip"`
	Protocol  string `yaml:"protocol"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Ports) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: ports must be a list", value.Line)
	}

	var out Ports
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, parseShortPort(item.Value)...)
		case yaml.MappingNode:
			var lp longPort
			if err := item.Decode(&lp); err != nil {
				return fmt.Errorf("line %d: invalid port definition: %w", item.Line, err)
			}
			out = append(out, fromLongPort(lp)...)
		default:
			return fmt.Errorf("line %d: invalid port definition", item.Line)
		}
	}

	*p = out
	return nil
}

// parseShortPort expands a short-syntax entry with nat.ParsePortSpec.
// Ranges expand to one mapping per port.
func parseShortPort(spec string) []PortMapping {
	mappings, err := nat.ParsePortSpec(spec)
	if err != nil {
		return []PortMapping{{Raw: spec}}
	}

	out := make([]PortMapping, 0, len(mappings))
	for _, m := range mappings {
		hostPort, _ := strconv.Atoi(m.Binding.HostPort)
		out = append(out, PortMapping{
			HostIP:        m.Binding.HostIP,
			HostPort:      hostPort,
			ContainerPort: m.Port.Int(),
			Protocol:      m.Port.Proto(),
		})
	}
	return out
}

func fromLongPort(lp longPort) []PortMapping {
	proto := lp.Protocol
	if proto == "" {
		proto = "tcp"
	}
	// Published may be a range ("8080-8081"); only its first port is checked.
	hostPort, _ := strconv.Atoi(strings.SplitN(lp.Published, "-", 2)[0])
	return []PortMapping{{
		HostIP:        lp.HostIP,
		HostPort:      hostPort,
		ContainerPort: lp.Target,
		Protocol:      proto,
	}}
}

// LoadDescriptor reads and parses the compose file at path.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", path, err)
	}

	desc, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compose file %s: %w", path, err)
	}
	desc.Path = path
	return desc, nil
}

// ParseDescriptor parses compose YAML bytes.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, err
	}
	if desc.Services == nil {
		desc.Services = map[string]Service{}
	}
	return &desc, nil
}

// HasService reports whether the descriptor declares the named service.
func (d *Descriptor) HasService(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.Services[name]
	return ok
}

// ServiceNames returns the declared service names in sorted order.
func (d *Descriptor) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VolumeName returns the Docker volume name compose uses for the volume
// declared under key: the explicit name when set, the bare key for an
// external volume, otherwise "<project>_<key>".
func (d *Descriptor) VolumeName(project, key string) string {
	if v := d.volume(key); v != nil {
		if v.Name != "" {
			return v.Name
		}
		if v.External {
			return key
		}
	}
	return project + "_" + key
}

// IsExternalVolume reports whether the volume declared under key is marked
// external, meaning compose neither creates nor removes it.
func (d *Descriptor) IsExternalVolume(key string) bool {
	v := d.volume(key)
	return v != nil && v.External
}

// BuildServices returns the names of the services with a build section, in
// sorted order. These are the services "docker compose build" rebuilds.
func (d *Descriptor) BuildServices() []string {
	if d == nil {
		return nil
	}
	var names []string
	for name, svc := range d.Services {
		if svc.HasBuild() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (d *Descriptor) volume(key string) *Volume {
	if d == nil {
		return nil
	}
	return d.Volumes[key]
}

// invalidProjectChars matches characters compose strips from project names.
var invalidProjectChars = regexp.MustCompile(`[^a-z0-9_-]`)

// ProjectName resolves the compose project name the same way docker compose
// does: an explicit override, then COMPOSE_PROJECT_NAME, then the
// descriptor's top-level name, then the basename of the descriptor's
// directory. The result is lowercased and stripped of characters compose
// rejects.
func ProjectName(override string, desc *Descriptor, composePath string) string {
	// The environment outranks the descriptor's name: compose reads it as
	// if it had been passed with -p.
	candidates := []string{override, os.Getenv("COMPOSE_PROJECT_NAME")}
	if desc != nil {
		candidates = append(candidates, desc.Name)
	}
	candidates = append(candidates, filepath.Base(filepath.Dir(composePath)))

	for _, c := range candidates {
		if name := normalizeProjectName(c); name != "" {
			return name
		}
	}
	return ""
}

func normalizeProjectName(s string) string {
	s = invalidProjectChars.ReplaceAllString(strings.ToLower(s), "")
	// Compose requires the name to start with a letter or digit.
	return strings.TrimLeft(s, "_-")
}
