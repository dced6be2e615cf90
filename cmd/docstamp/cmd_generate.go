package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/generate"
	"github.com/tsawler/docstamp/opc"
	"github.com/tsawler/docstamp/render/command"
)

var (
	generateTemplate    string
	generateRecords     string
	generateMapping     string
	generateOutput      string
	generateRenderer    string
	generateConcurrency int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render a template once per record and store the merged document",
	Long: `Renders the template for every record with the configured renderer
command, merges the results in record order and saves the document in the
configured store. The new document id is printed.

Records are an array of objects in JSON, or YAML for .yaml/.yml files. The
optional mapping, in the same formats, is an object from template
placeholder to record field; without it, record fields are used as
placeholder names.

The renderer command receives the template path as an argument (or in place
of {template} in its arguments), the values as a JSON object on stdin, and
must write the rendered .docx to stdout.

Example:
  docstamp generate --template letter.docx --records people.json --mapping map.json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateTemplate, "template", "t", "", "Template .docx file")
	generateCmd.Flags().StringVarP(&generateRecords, "records", "r", "", "JSON or YAML file with an array of records")
	generateCmd.Flags().StringVarP(&generateMapping, "mapping", "m", "", "JSON or YAML file mapping placeholders to record fields")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Also write the merged document to this file")
	generateCmd.Flags().StringVar(&generateRenderer, "renderer", "", "Renderer command (overrides render.command)")
	generateCmd.Flags().IntVar(&generateConcurrency, "concurrency", 0, "Records rendered at once (overrides render.concurrency)")
	_ = generateCmd.MarkFlagRequired("template")
	_ = generateCmd.MarkFlagRequired("records")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	renderer := generateRenderer
	if renderer == "" {
		renderer = cfg.Render.Command
	}
	if renderer == "" {
		return errors.New("no renderer configured: set render.command or pass --renderer")
	}

	template, err := os.ReadFile(generateTemplate)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	records, err := readRecords(generateRecords)
	if err != nil {
		return err
	}

	var mapping generate.Mapping
	if generateMapping != "" {
		if mapping, err = readMapping(generateMapping); err != nil {
			return err
		}
		if err := checkMapping(template, mapping); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	concurrency := cfg.Render.Concurrency
	if generateConcurrency > 0 {
		concurrency = generateConcurrency
	}

	p := &generate.Pipeline{
		Renderer:     command.New(renderer, cfg.Render.Args...),
		Mapping:      mapping,
		Store:        store,
		NumberKey:    cfg.Render.NumberKey,
		NumberPrefix: cfg.Render.NumberPrefix,
		Concurrency:  concurrency,
		Timeout:      time.Duration(cfg.Render.Timeout),
		Logger:       logger,
	}

	result, err := p.Run(cmd.Context(), template, records)
	if err != nil {
		return err
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, result.Document, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", generateOutput, err)
		}
	}

	cmd.Println(result.ID)
	return nil
}

// readRecords decodes an array of objects from JSON, or from YAML when
// the file ends in .yaml or .yml. Non-string values are written out in
// their JSON form; null becomes empty.
func readRecords(path string) ([]generate.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	var raw []map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	records := make([]generate.Record, len(raw))
	for i, obj := range raw {
		rec := make(generate.Record, len(obj))
		for k, v := range obj {
			switch v := v.(type) {
			case nil:
				rec[k] = ""
			case string:
				rec[k] = v
			case json.Number:
				rec[k] = v.String()
			default:
				encoded, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("record %d field %q: %w", i+1, k, err)
				}
				rec[k] = string(encoded)
			}
		}
		records[i] = rec
	}
	return records, nil
}

func readMapping(path string) (generate.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping: %w", err)
	}

	var mapping generate.Mapping
	if isYAML(path) {
		err = yaml.Unmarshal(data, &mapping)
	} else {
		err = json.Unmarshal(data, &mapping)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mapping, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// checkMapping rejects mappings naming placeholders the template lacks.
func checkMapping(template []byte, mapping generate.Mapping) error {
	pkg, err := opc.Open(template)
	if err != nil {
		return fmt.Errorf("opening template: %w", err)
	}
	r, err := docx.NewReader(pkg)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	return mapping.Check(r.Placeholders())
}
