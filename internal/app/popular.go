package app

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Amund211/lana/internal/fingerprint"
	"gopkg.in/yaml.v3"
)

func DefaultPopularTopics() []string {
	return []string{
		"python programming", "machine learning", "data science", "javascript",
		"react", "artificial intelligence", "web development", "algorithms",
		"database design", "cybersecurity", "cloud computing", "blockchain",
	}
}

// PopularTopics are precomputed at startup and served to any topic mentioning them
type PopularTopics struct {
	topics []string
	words  [][]string
}

func NewPopularTopics(topics []string) PopularTopics {
	p := PopularTopics{}
	for _, topic := range topics {
		normalized := fingerprint.NormalizeTopic(topic)
		if normalized == "" || slices.Contains(p.topics, normalized) {
			continue
		}
		p.topics = append(p.topics, normalized)
		p.words = append(p.words, strings.Fields(normalized))
	}
	return p
}

func (p PopularTopics) Topics() []string {
	return slices.Clone(p.topics)
}

// Match returns the longest popular topic that appears as whole words in topic
func (p PopularTopics) Match(topic string) (string, bool) {
	words := strings.Fields(fingerprint.NormalizeTopic(topic))

	best := -1
	for i, popularWords := range p.words {
		if !containsSequence(words, popularWords) {
			continue
		}
		if best == -1 || len(p.topics[i]) > len(p.topics[best]) {
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return p.topics[best], true
}

func containsSequence(words []string, sequence []string) bool {
	for start := 0; start+len(sequence) <= len(words); start++ {
		if slices.Equal(words[start:start+len(sequence)], sequence) {
			return true
		}
	}
	return false
}

type popularTopicsFile struct {
	Topics []string `yaml:"topics"`
}

// LoadPopularTopics reads the popular topics from a yaml file, or returns the
// defaults when path is empty
func LoadPopularTopics(path string) (PopularTopics, error) {
	if path == "" {
		return NewPopularTopics(DefaultPopularTopics()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PopularTopics{}, fmt.Errorf("failed to read popular topics file: %w", err)
	}

	var file popularTopicsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return PopularTopics{}, fmt.Errorf("failed to parse popular topics file: %w", err)
	}
	if len(file.Topics) == 0 {
		return PopularTopics{}, fmt.Errorf("popular topics file %s lists no topics", path)
	}

	return NewPopularTopics(file.Topics), nil
}
