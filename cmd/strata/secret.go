package main

import (
	"fmt"
)

func cmdSecret(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: strata secret <put|get|list|delete> [args...]")
	}

	cfg := loadConfig()
	fileCfg, err := loadFileConfig(cfg)
	if err != nil {
		return err
	}
	sm, err := buildSecrets(cfg, fileCfg)
	if err != nil {
		return err
	}

	sub := args[0]
	rest := args[1:]

	switch sub {
	case "put":
		if len(rest) < 2 {
			return fmt.Errorf("usage: strata secret put <name> <value>")
		}
		if err := sm.Put(rest[0], []byte(rest[1])); err != nil {
			return fmt.Errorf("put secret: %w", err)
		}
		fmt.Printf("Secret %q set\n", rest[0])

	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("usage: strata secret get <name>")
		}
		val, err := sm.Get(rest[0])
		if err != nil {
			return fmt.Errorf("get secret: %w", err)
		}
		fmt.Print(string(val))

	case "list":
		names, err := sm.List()
		if err != nil {
			return fmt.Errorf("list secrets: %w", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("usage: strata secret delete <name>")
		}
		if err := sm.Delete(rest[0]); err != nil {
			return fmt.Errorf("delete secret: %w", err)
		}
		fmt.Printf("Secret %q deleted\n", rest[0])

	default:
		return fmt.Errorf("unknown secret subcommand %q", sub)
	}
	return nil
}
