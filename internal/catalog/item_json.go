package catalog

import (
	"encoding/json"
	"fmt"
)

// Reserved keys of the flat item document; everything else is an attribute.
const (
	keyMongoID  = "_id"
	keyID       = "id"
	keyName     = "name"
	keyWeight   = "weight"
	keyAccepted = "accepted"
)

// MarshalJSON writes the item as a flat document.
func (it Item) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(it.Attrs)+4)
	for k, v := range it.Attrs {
		if v.Type == TypeNumber {
			doc[k] = v.Num
		} else {
			doc[k] = v.Str
		}
	}
	if it.ID != "" {
		doc[keyMongoID] = it.ID
	}
	doc[keyName] = it.Name
	doc[keyWeight] = it.EffectiveWeight()
	if len(it.Accepted) > 0 {
		doc[keyAccepted] = it.Accepted
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads a flat item document. Strings and numbers become
// attributes; other JSON kinds are dropped.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}

	out := Item{Weight: 1, Attrs: make(map[string]Value, len(raw))}
	for k, msg := range raw {
		switch k {
		case keyMongoID, keyID:
			var id any
			if err := json.Unmarshal(msg, &id); err != nil {
				return fmt.Errorf("decode item id: %w", err)
			}
			if id != nil {
				out.ID = fmt.Sprint(id)
			}
		case keyName:
			if err := json.Unmarshal(msg, &out.Name); err != nil {
				return fmt.Errorf("decode item name: %w", err)
			}
		case keyWeight:
			var w float64
			if err := json.Unmarshal(msg, &w); err != nil {
				return fmt.Errorf("decode item weight: %w", err)
			}
			out.Weight = int(w)
		case keyAccepted:
			if err := json.Unmarshal(msg, &out.Accepted); err != nil {
				return fmt.Errorf("decode item accepted: %w", err)
			}
		default:
			var v any
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("decode item attribute %q: %w", k, err)
			}
			switch tv := v.(type) {
			case string:
				out.Attrs[k] = StringValue(tv)
			case float64:
				out.Attrs[k] = NumberValue(tv)
			}
		}
	}
	if out.Weight < 1 {
		out.Weight = 1
	}
	*it = out
	return nil
}
