package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/detector"
	"github.com/trustmesh/trustmesh/internal/orchestrate"
)

var (
	analyzeInput    string
	analyzeRegistry string
	analyzeCompact  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the composite result",
	Long: "Reads an analysis input document as JSON from a file or stdin,\n" +
		"runs it through the detector registry and writes the composite\n" +
		"result to stdout.",
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "-", "input JSON file, or - for stdin")
	analyzeCmd.Flags().StringVarP(&analyzeRegistry, "registry", "r", "", "YAML detector registry (default: built-in detectors)")
	analyzeCmd.Flags().BoolVar(&analyzeCompact, "compact", false, "emit single-line JSON")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	input, err := readInput(analyzeInput)
	if err != nil {
		return err
	}

	reg := detector.DefaultRegistry()
	if analyzeRegistry != "" {
		fileCfg, err := detector.LoadFile(analyzeRegistry)
		if err != nil {
			return err
		}
		if reg, err = detector.BuildRegistry(fileCfg); err != nil {
			return err
		}
	}

	res := orchestrate.New(reg).Analyze(cmd.Context(), input)

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !analyzeCompact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}

func readInput(path string) (analysis.Input, error) {
	var in analysis.Input

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return in, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}
