package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadimport/internal/core"
)

// fileOptions are the flags shared by commands that read an import file.
type fileOptions struct {
	format string
	preset string
}

func (o *fileOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "File format: csv, json or xlsx (default: from extension)")
	cmd.Flags().StringVar(&o.preset, "mapping", "", "YAML mapping preset applied over the inferred mapping")
}

// loadSession decodes path, starts a session in the validate stage, applies
// the preset if any and re-validates.
func (o *fileOptions) loadSession(path string) (*core.Session, error) {
	format, err := o.resolveFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	table, err := core.Decode(f, format)
	if err != nil {
		return nil, err
	}

	sess := core.NewSession(uuid.NewString(), core.DefaultRegistry())
	if err := sess.Load(filepath.Base(path), table); err != nil {
		return nil, err
	}

	if o.preset != "" {
		preset, err := LoadPreset(o.preset)
		if err != nil {
			return nil, err
		}
		if err := preset.Apply(sess); err != nil {
			return nil, err
		}
		if _, err := sess.Revalidate(); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (o *fileOptions) resolveFormat(path string) (core.Format, error) {
	if o.format != "" {
		return core.ParseFormat(o.format)
	}
	return core.DetectFormat(path)
}
