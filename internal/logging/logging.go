// Package logging configures commonlog for the tadpole binaries and hands
// out named loggers to the rest of the tree.
package logging

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const root = "tadpole"

// Configure sets the global verbosity (0 = warnings and errors only) and an
// optional log file; an empty path logs to stderr.
func Configure(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

// Logger returns the logger named "tadpole.<name>". Callers fetch it at use
// time so that a backend configured after package init is honored.
func Logger(name string) commonlog.Logger {
	return commonlog.GetLogger(root + "." + name)
}
