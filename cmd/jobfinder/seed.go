package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/filter"
	"github.com/maxaizer/job-finder/internal/repositories"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var seedConfigCmd = &cobra.Command{
	Use:   "seed-config <file.yaml>",
	Short: "Store the job-filters, technology-ranks and queue-settings documents from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeedConfig,
}

func init() {
	rootCmd.AddCommand(seedConfigCmd)
}

// seedTargets maps each document name to a constructor of the value it must decode into.
var seedTargets = map[string]func() any{
	repositories.DocJobFilters:      func() any { return &filter.Config{} },
	repositories.DocTechnologyRanks: func() any { return &filter.TechnologyRanks{} },
	repositories.DocQueueSettings:   func() any { return &entities.QueueSettings{} },
}

// parseSeedDocuments converts the top-level keys of a YAML file into JSON
// documents. Unknown document names and unknown fields are rejected.
func parseSeedDocuments(raw []byte) (map[string][]byte, error) {
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(err, "invalid yaml")
	}
	if len(values) == 0 {
		return nil, errors.New("no documents found")
	}

	docs := make(map[string][]byte, len(values))
	for name, value := range values {
		target, ok := seedTargets[name]
		if !ok {
			return nil, fmt.Errorf("unknown config document %q", name)
		}

		doc, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrapf(err, "document %s", name)
		}

		decoder := json.NewDecoder(bytes.NewReader(doc))
		decoder.DisallowUnknownFields()
		if err = decoder.Decode(target()); err != nil {
			return nil, errors.Wrapf(err, "document %s", name)
		}
		docs[name] = doc
	}
	return docs, nil
}

func runSeedConfig(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	docs, err := parseSeedDocuments(raw)
	if err != nil {
		return err
	}

	return withStore(func(s *store) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
		defer cancel()

		names := make([]string, 0, len(docs))
		for name := range docs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := s.docs.Save(ctx, name, docs[name]); err != nil {
				return errors.Wrapf(err, "save %s", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", name)
		}
		return nil
	})
}
