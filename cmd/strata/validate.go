package main

import (
	"fmt"

	"github.com/glyphworks/strata/internal/cache"
	"github.com/glyphworks/strata/internal/schema"
	"github.com/glyphworks/strata/internal/workflow"
)

// cmdValidate parses a workflow file and resolves every schema it
// references without opening any connections.
func cmdValidate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: strata validate <workflow.yaml>")
	}

	cfg := loadConfig()
	fileCfg, err := loadFileConfig(cfg)
	if err != nil {
		return err
	}

	wf, err := workflow.LoadFile(args[0])
	if err != nil {
		return err
	}

	sm, err := buildSecrets(cfg, fileCfg)
	if err != nil {
		return err
	}
	resolver := schema.NewResolver(cache.NewResourceCache(fileCfg.Cache.Capacity), sm, fileCfg.SchemaPaths)

	for _, alias := range wf.Aliases() {
		s, origin, err := resolver.ResolveAlias(alias)
		if err != nil {
			return err
		}
		fmt.Printf("alias %-12s -> %s (%s)\n", alias, s.Source.Kind, origin)
	}

	fmt.Printf("workflow %q: %d steps, %d aliases, ok\n", wf.Name, len(wf.Steps), len(wf.Aliases()))
	return nil
}
