package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// structured reports whether --format requested machine output.
func structured() bool {
	return formatFlag == "json" || formatFlag == "yaml"
}

// emit writes v in the requested machine format.
func emit(v any) error {
	switch formatFlag {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json", "":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (want json or yaml)", formatFlag)
}
