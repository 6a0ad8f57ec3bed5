// Package savedquery reads saved queries from YAML files.
package savedquery

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/specify/storedq/internal/engine"
	"github.com/specify/storedq/internal/fieldspec"
	"github.com/specify/storedq/internal/schema"
)

// Query is a saved query as stored on disk.
//
//	rootTable: CollectionObject   # or rootTableId: 1
//	scope: 4
//	fields:
//	  - stringId: 1,63-preparations,65.preptype.name
//	    operatorCode: 1
//	    startValue: skeleton
//	    isDisplay: true
//	    id: 7
type Query struct {
	RootTable   string                 `yaml:"rootTable,omitempty"`
	RootTableID int                    `yaml:"rootTableId,omitempty"`
	Scope       int64                  `yaml:"scope"`
	Fields      []fieldspec.Descriptor `yaml:"fields"`
	Operands    map[int64]string       `yaml:"operands,omitempty"`
	PageSize    int                    `yaml:"pageSize,omitempty"`
	LastID      int64                  `yaml:"lastId,omitempty"`
}

// Load reads a saved query. Unknown keys are rejected.
func Load(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query: %w", err)
	}
	return Parse(data)
}

// Parse decodes a saved query from YAML.
func Parse(data []byte) (*Query, error) {
	var q Query
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("query is empty")
		}
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	if q.RootTable == "" && q.RootTableID == 0 {
		return nil, errors.New("query names no root table (rootTable or rootTableId)")
	}
	return &q, nil
}

// Request builds the engine request, resolving a root table name against
// reg. When both rootTable and rootTableId are set they must agree.
func (q *Query) Request(reg *schema.Registry) (engine.Request, error) {
	rootID := q.RootTableID
	if q.RootTable != "" {
		t, err := reg.TableByName(q.RootTable)
		if err != nil {
			return engine.Request{}, err
		}
		if rootID != 0 && rootID != t.ID {
			return engine.Request{}, fmt.Errorf("rootTable %s has id %d, not %d", t.Name, t.ID, rootID)
		}
		rootID = t.ID
	}
	return engine.Request{
		RootTableID: rootID,
		Scope:       q.Scope,
		Fields:      q.Fields,
		Operands:    q.Operands,
		PageSize:    q.PageSize,
		LastID:      q.LastID,
	}, nil
}
