package automation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseModel decodes a YAML rule model and validates it.
//
//	rules:
//	  - name: hall light follows motion
//	    triggers:
//	      - type: change
//	        item: HallMotion
//	        to: "ON"
//	    script: |
//	      sendCommand("HallLight", "ON")
//
// Rules without a name are named after the model and their position.
func ParseModel(name string, data []byte) (*RuleModel, error) {
	if err := ValidateModelName(name); err != nil {
		return nil, err
	}

	var m RuleModel
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidModel, name, err)
	}

	m.Name = name
	base := strings.TrimSuffix(name, modelExtension)
	for i, r := range m.Rules {
		if r == nil {
			return nil, fmt.Errorf("%w: %s: rule[%d] is empty", ErrInvalidModel, name, i)
		}
		if strings.TrimSpace(r.Name) == "" {
			r.Name = base + "-" + strconv.Itoa(i+1)
		}
		r.Model = name
	}

	if err := ValidateModel(&m); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &m, nil
}

// Checksum returns the hex SHA-256 of a model source.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
