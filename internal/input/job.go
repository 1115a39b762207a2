package input

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Job is a saved rank check, read from YAML:
//
//	domain: example.com
//	location: United States
//	language: en
//	keywords:
//	  - running shoes
//	keywords_text: |
//	  trail shoes, hiking boots
//
// The API key is never stored in a job file.
type Job struct {
	Domain       string   `yaml:"domain"`
	Location     string   `yaml:"location"`
	Language     string   `yaml:"language"`
	Keywords     []string `yaml:"keywords"`
	KeywordsText string   `yaml:"keywords_text"`
}

// LoadJob reads a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return &job, nil
}

// Request converts the job into a Request. keywords entries are taken
// verbatim and come first, followed by those parsed from keywords_text.
func (j *Job) Request() Request {
	var kws []string
	for _, k := range j.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	kws = append(kws, ParseKeywords(j.KeywordsText)...)
	return Request{
		Domain:   j.Domain,
		Keywords: kws,
		Location: j.Location,
		Language: j.Language,
	}
}

