package data

import "encoding/json"

// Row represents a single table row.
// Key = column name, Value = cell value (int64, float64 or string).
type Row struct {
	Data map[string]interface{}
}

// NewRow creates a new Row with the given data
func NewRow(data map[string]interface{}) Row {
	return Row{Data: data}
}

// Copy creates a deep copy of the row to prevent mutation
func (r Row) Copy() Row {
	dup := make(map[string]interface{}, len(r.Data))
	for k, v := range r.Data {
		dup[k] = v
	}
	return Row{Data: dup}
}

// CopyRows deep-copies a row slice. Used by the transaction staging area so
// uncommitted mutations never alias the table's authoritative rows.
func CopyRows(rows []Row) []Row {
	dup := make([]Row, len(rows))
	for i, r := range rows {
		dup[i] = r.Copy()
	}
	return dup
}

// UnmarshalJSON allows Row to be unmarshaled from a JSON object
func (r *Row) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	r.Data = m
	return nil
}

// MarshalJSON allows Row to be marshaled as a plain JSON object
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data)
}
