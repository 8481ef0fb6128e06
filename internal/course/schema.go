package course

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema describes the authored course definition format.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["courseId", "modules"],
  "properties": {
    "courseId": {"type": "string", "minLength": 1},
    "courseTitle": {"type": "string"},
    "passingScore": {"type": "integer", "minimum": 0, "maximum": 100},
    "modules": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/module"}}
  },
  "definitions": {
    "module": {
      "type": "object",
      "required": ["title", "slides"],
      "properties": {
        "title": {"type": "string"},
        "slides": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/slide"}}
      }
    },
    "source": {
      "type": "object",
      "required": ["title", "url"],
      "properties": {
        "title": {"type": "string"},
        "url": {"type": "string"},
        "org": {"type": "string"}
      }
    },
    "choice": {
      "type": "object",
      "required": ["text"],
      "properties": {
        "text": {"type": "string"},
        "correct": {"type": "boolean"},
        "feedback": {"type": "string"}
      }
    },
    "slide": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["content", "quiz", "simulation", "video"]}
      },
      "allOf": [
        {
          "if": {"properties": {"type": {"const": "content"}}},
          "then": {
            "required": ["content"],
            "properties": {
              "content": {"type": "string"},
              "sources": {"type": "array", "items": {"$ref": "#/definitions/source"}}
            }
          }
        },
        {
          "if": {"properties": {"type": {"const": "quiz"}}},
          "then": {
            "required": ["question", "options", "correctAnswer"],
            "properties": {
              "question": {"type": "string"},
              "options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
              "correctAnswer": {"type": "integer", "minimum": 0}
            }
          }
        },
        {
          "if": {"properties": {"type": {"const": "simulation"}}},
          "then": {
            "required": ["scenario", "choices"],
            "properties": {
              "scenario": {"type": "string"},
              "context": {"type": "string"},
              "choices": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/choice"}}
            }
          }
        },
        {
          "if": {"properties": {"type": {"const": "video"}}},
          "then": {
            "required": ["videoUrl"],
            "properties": {
              "videoUrl": {"type": "string", "minLength": 1}
            }
          }
        }
      ]
    }
  }
}`

// SchemaError lists every schema violation found in a course document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "course document is invalid: " + strings.Join(e.Problems, "; ")
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

// ValidateDocument checks a decoded course document (as produced by a YAML or
// JSON decoder into `any`) against the course definition schema.
func ValidateDocument(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile course schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate course document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return &SchemaError{Problems: problems}
}
