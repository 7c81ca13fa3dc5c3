package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/query"
)

// loadSpec reads a YAML (or JSON) spec document from the path argument, the
// --input file or piped stdin and decodes it with query.SpecFromYAML.
func loadSpec(cmd *cobra.Command, args []string, input string) (*query.Spec, error) {
	if len(args) > 0 {
		input = args[0]
	}

	var content string
	var err error
	if input != "" {
		content, err = readFile(input)
	} else {
		content, err = readInput(cmd, nil, "")
	}
	if err != nil {
		return nil, err
	}

	return parseSpec([]byte(content))
}

func parseSpec(content []byte) (*query.Spec, error) {
	spec, err := query.SpecFromYAML(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spec: %w", err)
	}
	return spec, nil
}
