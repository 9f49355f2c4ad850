/*
source.go - File-backed rule source

PURPOSE:
  A transition.RuleSource reading the JSON rule document from disk through
  the package's codec. The file is re-read on every load, so a RuleStore
  Reload picks up edits without a restart.

SEE ALSO:
  - rules.go: The codec doing the parsing and validation
  - transition/source.go: The RuleSource interface
*/
package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/warp/transition-engine/transition"
)

// FileSource reads rules from a JSON file each time it is asked.
type FileSource struct {
	Path string
}

func (f FileSource) LoadRules(_ context.Context) (transition.RuleSet, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", f.Path, err)
	}

	rules, err := ParseRules(string(data))
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", f.Path, err)
	}
	return rules, nil
}
