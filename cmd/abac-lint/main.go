package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oarkflow/abac"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		handleValidate()
	case "explain":
		handleExplain()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("abac-lint - Policy document tooling")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  abac-lint validate <universe.json> <policy.json|policy.yaml>")
	fmt.Println("  abac-lint explain <universe.json> <policy.json> <subject.json> <resource.json> <action>")
}

// universeDoc is a standalone JSON document naming the resource-type
// universe, e.g. {"types": ["document", "project"]}.
type universeDoc struct {
	Types []string `json:"types"`
}

func loadUniverse(filename string) (abac.ResourceTypeUniverse, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return abac.ResourceTypeUniverse{}, err
	}
	var doc universeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return abac.ResourceTypeUniverse{}, fmt.Errorf("decoding universe document: %w", err)
	}
	return abac.NewResourceTypeUniverse(doc.Types...)
}

func loadPolicy(loader *abac.PolicyDocumentLoader, filename string) (*abac.Policy, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return loader.LoadYAML(f)
	case ".json":
		return loader.LoadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filename)
	}
}

func handleValidate() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: abac-lint validate <universe.json> <policy.json|policy.yaml>")
		os.Exit(1)
	}

	universe, err := loadUniverse(os.Args[2])
	if err != nil {
		fmt.Printf("Error loading universe: %v\n", err)
		os.Exit(1)
	}

	loader := abac.NewPolicyDocumentLoader(universe)
	policy, err := loadPolicy(loader, os.Args[3])
	if err != nil {
		fmt.Printf("Invalid policy: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Policy is valid\n")
	fmt.Printf("  ID:       %s\n", policy.ID)
	fmt.Printf("  Action:   %s\n", policy.Action)
	fmt.Printf("  Resource: %s\n", policy.Resource)
	fmt.Printf("  Checksum: %s\n", policy.Checksum())
}

// entityDoc is a standalone JSON document for a subject or resource:
// {"id": "...", "type": "...", "attributes": {"key": value, ...}}.
type entityDoc struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

func loadEntity(filename string) (*abac.Resource, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var doc entityDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding entity document: %w", err)
	}
	attrs := abac.Attributes{}
	for k, v := range doc.Attributes {
		av, err := entityAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = av
	}
	return &abac.Resource{ID: doc.ID, Type: doc.Type, Attributes: attrs}, nil
}

func entityAttributeValue(v any) (abac.AttributeValue, error) {
	switch t := v.(type) {
	case string:
		return abac.StringValue(t), nil
	case float64:
		return abac.NumberValue(t), nil
	case bool:
		return abac.BoolValue(t), nil
	case []any:
		if len(t) == 0 {
			return abac.AttributeValue{}, fmt.Errorf("array attribute must not be empty")
		}
		if _, ok := t[0].(string); ok {
			out := make([]string, len(t))
			for i, e := range t {
				out[i], _ = e.(string)
			}
			return abac.StringArrayValue(out), nil
		}
		out := make([]float64, len(t))
		for i, e := range t {
			out[i], _ = e.(float64)
		}
		return abac.NumberArrayValue(out), nil
	default:
		return abac.AttributeValue{}, fmt.Errorf("unsupported attribute shape %T", v)
	}
}

func handleExplain() {
	if len(os.Args) < 7 {
		fmt.Println("Usage: abac-lint explain <universe.json> <policy.json> <subject.json> <resource.json> <action>")
		os.Exit(1)
	}

	universe, err := loadUniverse(os.Args[2])
	if err != nil {
		fmt.Printf("Error loading universe: %v\n", err)
		os.Exit(1)
	}

	loader := abac.NewPolicyDocumentLoader(universe)
	policy, err := loadPolicy(loader, os.Args[3])
	if err != nil {
		fmt.Printf("Invalid policy: %v\n", err)
		os.Exit(1)
	}

	subject, err := loadEntity(os.Args[4])
	if err != nil {
		fmt.Printf("Error loading subject: %v\n", err)
		os.Exit(1)
	}
	resource, err := loadEntity(os.Args[5])
	if err != nil {
		fmt.Printf("Error loading resource: %v\n", err)
		os.Exit(1)
	}
	action := abac.Action(os.Args[6])

	manager := abac.NewPolicyManager(universe)
	if err := manager.AddPolicy(policy); err != nil {
		fmt.Printf("Error registering policy: %v\n", err)
		os.Exit(1)
	}
	engine := abac.NewAuthEngine(manager.GetPolicies())

	allowed, trace, err := engine.Explain(subject, resource, action)
	if err != nil {
		fmt.Printf("Evaluation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Decision: %v\n", allowed)
	fmt.Println("Trace:")
	for _, rec := range trace {
		fmt.Printf("  [%s] policy=%s detail=%s", rec.Stage, rec.PolicyID, rec.Detail)
		if rec.Outcome != nil {
			fmt.Printf(" outcome=%v", *rec.Outcome)
		}
		if rec.Err != nil {
			fmt.Printf(" error=%v", rec.Err)
		}
		fmt.Println()
	}
}
