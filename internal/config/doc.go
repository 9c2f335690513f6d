// Package config provides configuration management for teamsync.
//
// Configuration is loaded from a single directory. The default directory
// is ~/.config/teamsync; commands accept --config-path to use another one.
//
// # Configuration Directory
//
// The directory contains:
//   - teamsync.yaml (main configuration file)
//   - subdirectories for persisted state (changesets/)
//
// A missing teamsync.yaml means defaults. A malformed file yields a
// ConfigurationError; a file that parses but fails validation yields a
// ConfigurationErrorCollection listing every problem.
//
// # Configuration Structure
//
//	root: .                    # working tree to follow (default: .)
//	debounce: 200ms            # watcher debounce window (default: 200ms)
//	logLevel: info             # debug, info, warn, error
//	logFormat: text            # text or json
//	ignore:                    # extra gitignore style patterns
//	  - "*.orig"
//	filter:                    # selects the filtered sync set
//	  directions: [outgoing, conflicting]
//	  changes: [modification]
//	  include: ["src/"]
//	  exclude: ["*.gen.go"]
//	changeSets:
//	  name: active             # storage name under changesets/
//	  default: Default         # change set for new outgoing changes
//	metrics:
//	  enabled: false
//	  address: localhost:9464
//
// # State Storage
//
// Storage keeps YAML documents in type-specific subdirectories of the
// configuration directory. Writes go through a temporary file and a rename,
// so a reader sees either the old or the new document.
//
//	storage := config.NewStorageWithPath(dir)
//	err := storage.Save("changesets", "active", data)
//	data, err := storage.Load("changesets", "active")
//	if errors.Is(err, config.ErrNotFound) {
//	    // nothing persisted yet
//	}
package config
