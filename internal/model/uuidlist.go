package model

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDList is a list of ids stored as a comma-separated text column.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	parts := make([]string, 0, len(l))
	for _, id := range l {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ","), nil
}

func (l *UUIDList) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into UUIDList", src)
	}

	if raw == "" {
		*l = nil
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make(UUIDList, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("invalid uuid %q: %w", p, err)
		}
		out = append(out, id)
	}
	*l = out
	return nil
}
