package knowledge

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var builtin embed.FS

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["subject", "questions"],
  "additionalProperties": false,
  "properties": {
    "subject": {"type": "string", "enum": ["science", "maths"]},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "answer"],
        "additionalProperties": false,
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "answer": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

// document is the YAML layout of one subject's question bank.
type document struct {
	Subject   string  `yaml:"subject"`
	Questions []Entry `yaml:"questions"`
}

// Default returns the built-in Science and Maths knowledge base.
func Default() (*Base, error) {
	banks, err := loadBuiltin()
	if err != nil {
		return nil, err
	}
	return NewBase(banks)
}

// MustDefault is like Default but panics if the embedded content is invalid.
func MustDefault() *Base {
	b, err := Default()
	if err != nil {
		panic(fmt.Sprintf("knowledge: built-in content: %v", err))
	}
	return b
}

// Load returns the built-in knowledge base with any subject banks found under dir
// replacing the built-in bank for the same subject. An empty dir yields the defaults.
func Load(dir string) (*Base, error) {
	banks, err := loadBuiltin()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return NewBase(banks)
	}

	overrides, err := loadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge from %s: %w", dir, err)
	}
	for subject, bank := range overrides {
		banks[subject] = bank
	}

	base, err := NewBase(banks)
	if err != nil {
		return nil, err
	}
	slog.Info("knowledge base loaded",
		"path", dir,
		"overridden_subjects", len(overrides),
	)
	return base, nil
}

// ParseDocument validates and decodes a YAML subject document.
func ParseDocument(data []byte) (SubjectID, *QABank, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return "", nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("decode yaml: %w", err)
	}
	subject, err := ParseSubject(doc.Subject)
	if err != nil {
		return "", nil, err
	}
	bank, err := NewQABank(doc.Questions)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", subject, err)
	}
	return subject, bank, nil
}

func validateDocument(raw any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid document: %s", strings.Join(msgs, "; "))
}

func loadBuiltin() (map[SubjectID]*QABank, error) {
	banks := make(map[SubjectID]*QABank)
	err := fs.WalkDir(builtin, "data", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtin.ReadFile(path)
		if err != nil {
			return err
		}
		subject, bank, err := ParseDocument(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		banks[subject] = bank
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading built-in knowledge: %w", err)
	}
	return banks, nil
}

func loadDir(dir string) (map[SubjectID]*QABank, error) {
	banks := make(map[SubjectID]*QABank)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			subject, bank, err := ParseDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			banks[subject] = bank
		case ".xlsx":
			found, err := LoadWorkbook(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for subject, bank := range found {
				banks[subject] = bank
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return banks, nil
}
