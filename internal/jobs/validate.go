// SPDX-License-Identifier: MIT

package jobs

import (
	"errors"
	"fmt"
	"os"
)

// validateDeps checks the run can start at all: the dataset directory
// must exist and a store must be wired. Missing Spotify credentials
// are not an error, they only skip the feature stage.
func validateDeps(deps Deps) error {
	if deps.Store == nil {
		return errors.New("catalog store not configured")
	}
	info, err := os.Stat(deps.Config.DataDir)
	if err != nil {
		return fmt.Errorf("data directory %q: %w", deps.Config.DataDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %q is not a directory", deps.Config.DataDir)
	}
	return nil
}
