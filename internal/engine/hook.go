package engine

import (
	"github.com/cmgg/labqc/internal/config"
	"github.com/cmgg/labqc/internal/log"
	"github.com/cmgg/labqc/internal/module"
)

// ExecutionStart runs once per process, before any module executes. It
// validates and normalizes the global configuration and logs what will
// run. It holds no per-run state.
func ExecutionStart(cfg *config.Config, logger *log.Logger) {
	mods := module.All()
	ids := moduleIDs(mods)
	logger.Printf("registered modules: %v", ids)

	for _, warning := range config.Validate(cfg, ids) {
		logger.Warnf("%s", warning)
	}

	if len(cfg.RunModules) > 0 {
		logger.Printf("run_modules restricts this run to: %v", cfg.RunModules)
	}
}
