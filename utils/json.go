// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package utils

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

func Pretty(in interface{}) string {
	bb, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return ""
	}
	return string(bb)
}

// Remarshal converts src into dst by round-tripping it through JSON. It is
// used to turn loosely typed event fields into caller-defined structs.
func Remarshal(dst, src interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "failed to encode")
	}
	return errors.Wrap(json.Unmarshal(data, dst), "failed to decode")
}

// DecodeObject decodes a JSON object preserving numbers as json.Number, so
// that large integer IDs in event payloads survive unchanged.
func DecodeObject(data []byte) (map[string]interface{}, error) {
	m := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, NewInvalidError(err)
	}
	return m, nil
}
