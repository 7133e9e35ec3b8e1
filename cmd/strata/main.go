package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "strata: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return usageError()
	}
	subcmd := args[0]
	args = args[1:]

	switch subcmd {
	case "run":
		return cmdRun(args)
	case "validate":
		return cmdValidate(args)
	case "secret":
		return cmdSecret(args)
	case "init":
		return cmdInit()
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("usage: strata <run|validate|secret|init> [args...]")
}
