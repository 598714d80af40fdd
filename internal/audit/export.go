package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"id", "timestamp", "event_type", "actor_id", "actor_roles", "action", "resource_type", "resource_id", "success", "security_level", "details"}

// ExportCSV renders events as CSV with a header row.
func ExportCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range events {
		roles := make([]string, len(e.ActorRoles))
		for i, r := range e.ActorRoles {
			roles[i] = string(r)
		}
		details := ""
		if len(e.Details) > 0 {
			raw, err := json.Marshal(e.Details)
			if err != nil {
				return nil, err
			}
			details = string(raw)
		}
		record := []string{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.EventType),
			e.ActorID,
			strings.Join(roles, "|"),
			e.Action,
			e.ResourceType,
			e.ResourceID,
			strconv.FormatBool(e.Success),
			string(e.SecurityLevel),
			details,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
