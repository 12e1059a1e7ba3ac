package ledger

import "encoding/json"

func encodeMeta(m Meta) ([]byte, error) {
	return json.Marshal(m)
}

func decodeMeta(b []byte) (Meta, error) {
	var m Meta
	err := json.Unmarshal(b, &m)
	return m, err
}
