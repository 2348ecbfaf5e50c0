package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	// Omitted means active
	Active *bool `yaml:"active"`
}

// LoadSources reads the seed list of feeds from a yaml file.
func LoadSources(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	return ParseSources(data)
}

func ParseSources(data []byte) ([]model.Source, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	sources := make([]model.Source, 0, len(file.Sources))
	for i, entry := range file.Sources {
		url := strings.TrimSpace(entry.URL)
		if url == "" {
			return nil, fmt.Errorf("source #%d: url is required", i+1)
		}

		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = url
		}

		active := true
		if entry.Active != nil {
			active = *entry.Active
		}

		sources = append(sources, model.Source{
			Name:     name,
			FeedURL:  url,
			Category: strings.TrimSpace(entry.Category),
			Active:   active,
		})
	}

	return sources, nil
}
