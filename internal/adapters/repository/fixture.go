package repository

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/sample.yaml
var sampleFixture []byte

// Fixture is the YAML document loaded by the memory store.
type Fixture struct {
	People   []FixturePerson    `yaml:"people"`
	Domains  []string           `yaml:"domains"`
	Indirect []FixtureExpertise `yaml:"indirect"`
	Articles []FixtureArticle   `yaml:"articles"`
}

// FixturePerson is a person with their direct expertise tags.
type FixturePerson struct {
	Name       string   `yaml:"name"`
	Department string   `yaml:"department"`
	Domains    []string `yaml:"domains"`
	ExpertID   int64    `yaml:"expert_id"`
}

// FixtureExpertise links a person to a domain they are an indirect expert in.
type FixtureExpertise struct {
	Person string `yaml:"person"`
	Domain string `yaml:"domain"`
}

// FixtureArticle is an authored article.
type FixtureArticle struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Authors  []string `yaml:"authors"`
	Domains  []string `yaml:"domains"`
	Keywords []string `yaml:"keywords"`
	Abstract string   `yaml:"abstract"`
	Year     int      `yaml:"year"`
}

// SampleFixture returns the built-in demo fixture.
func SampleFixture() (*Fixture, error) {
	return ParseFixture(bytes.NewReader(sampleFixture))
}

// LoadFixture reads a fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return ParseFixture(f)
}

// ParseFixture decodes and validates a fixture. Unknown keys are rejected.
func ParseFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	people := make(map[string]struct{}, len(fx.People))
	for i, p := range fx.People {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("%w: person %d has no name", ErrInvalidFixture, i)
		}
		if _, dup := people[name]; dup {
			return fmt.Errorf("%w: duplicate person %q", ErrInvalidFixture, name)
		}
		people[name] = struct{}{}
	}
	ids := make(map[string]struct{}, len(fx.Articles))
	for i, a := range fx.Articles {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: article %d has no id", ErrInvalidFixture, i)
		}
		if _, dup := ids[a.ID]; dup {
			return fmt.Errorf("%w: duplicate article id %q", ErrInvalidFixture, a.ID)
		}
		ids[a.ID] = struct{}{}
		if a.Year < 0 {
			return fmt.Errorf("%w: article %q has a negative year", ErrInvalidFixture, a.ID)
		}
	}
	for _, e := range fx.Indirect {
		if _, ok := people[strings.TrimSpace(e.Person)]; !ok {
			return fmt.Errorf("%w: indirect expertise for unknown person %q", ErrInvalidFixture, e.Person)
		}
	}
	return nil
}
