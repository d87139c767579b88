package remoteconfig

import (
	"context"
	"fmt"
	"os"

	"github.com/cyberauditpro/cyberaudit/ports"
	"gopkg.in/yaml.v3"
)

// FileBackend serves named configuration from a YAML document whose top-level
// keys are configuration names:
//
//	get-walletconnect-config:
//	  project_id: 0123abcd
type FileBackend struct {
	path string
}

var _ ports.ConfigBackend = (*FileBackend)(nil)

// NewFileBackend reads configuration from path on every fetch
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// FetchConfig decodes the section called name into out
func (f *FileBackend) FetchConfig(ctx context.Context, name string, out any) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	node, ok := doc[name]
	if !ok {
		return fmt.Errorf("config %q not found in %s", name, f.path)
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("decode config %s: %w", name, err)
	}
	return nil
}
