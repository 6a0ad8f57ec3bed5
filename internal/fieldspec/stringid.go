package fieldspec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/specify/storedq/internal/queryerr"
)

// stringIDPattern splits "<path>.<tableName>.<fieldName>". The field part
// may itself contain dots; the path and table parts may not.
var stringIDPattern = regexp.MustCompile(`^([^.]*)\.([^.]*)\.(.*)$`)

// PathElem is one element of a stringId join path.
type PathElem struct {
	TableID      int
	Relationship string // empty when the relationship is to be inferred
}

// StringID is a parsed stringId.
type StringID struct {
	Path      []PathElem // Path[0] is the root; it never names a relationship
	TableName string
	FieldName string
}

// String formats the stringId in its wire form.
func (s StringID) String() string {
	elems := make([]string, len(s.Path))
	for i, e := range s.Path {
		elems[i] = strconv.Itoa(e.TableID)
		if e.Relationship != "" {
			elems[i] += "-" + e.Relationship
		}
	}
	return strings.Join(elems, ",") + "." + s.TableName + "." + s.FieldName
}

// ParseStringID parses a stringId such as
// "1,63-preparations,65.preptype.name". It checks grammar only; no
// registry lookups happen here.
func ParseStringID(s string) (StringID, error) {
	m := stringIDPattern.FindStringSubmatch(s)
	if m == nil {
		return StringID{}, queryerr.NewMalformedStringIDError(s, "want <path>.<table>.<field>")
	}
	path, tableName, fieldName := m[1], m[2], m[3]
	if tableName == "" || fieldName == "" {
		return StringID{}, queryerr.NewMalformedStringIDError(s, "empty table or field name")
	}

	var id StringID
	for i, raw := range strings.Split(path, ",") {
		tableID, rel, hasRel := strings.Cut(strings.TrimSpace(raw), "-")
		n, err := strconv.Atoi(tableID)
		if err != nil {
			return StringID{}, queryerr.NewMalformedStringIDError(s, "path element "+strconv.Quote(raw)+" is not a table id")
		}
		if hasRel && rel == "" {
			return StringID{}, queryerr.NewMalformedStringIDError(s, "path element "+strconv.Quote(raw)+" has an empty relationship name")
		}
		if i == 0 && hasRel {
			return StringID{}, queryerr.NewMalformedStringIDError(s, "root element cannot name a relationship")
		}
		id.Path = append(id.Path, PathElem{TableID: n, Relationship: rel})
	}
	id.TableName = tableName
	id.FieldName = fieldName
	return id, nil
}
