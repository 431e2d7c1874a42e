package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vocdoni/evote-verifier/types"
)

// signatureField and authorityField are the envelope fields the signed
// payload convention (spec §6) places next to the domain fields of every
// JSON artifact in the dataset.
const (
	signatureField = "signature"
	authorityField = "authenticatingAuthority"
)

// SignedPayload wraps a parsed JSON document of type T together with its
// signature envelope. Every payload file is parsed through this type;
// accessors that only need the content (Dataset.Context, BallotBox.Decoded)
// return the parsed Content without the envelope.
type SignedPayload[T any] struct {
	Content                 T
	Signature                types.HexBytes
	AuthenticatingAuthority string

	raw []byte
}

// ParseSignedPayload decodes raw as a signed JSON payload of type T.
func ParseSignedPayload[T any](raw []byte) (*SignedPayload[T], error) {
	var content T
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("decoding payload content: %w", err)
	}

	var envelope struct {
		Signature               types.HexBytes `json:"signature"`
		AuthenticatingAuthority string         `json:"authenticatingAuthority"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding payload envelope: %w", err)
	}
	if envelope.AuthenticatingAuthority == "" {
		return nil, fmt.Errorf("payload is missing authenticatingAuthority")
	}

	return &SignedPayload[T]{
		Content:                 content,
		Signature:               envelope.Signature,
		AuthenticatingAuthority: envelope.AuthenticatingAuthority,
		raw:                     raw,
	}, nil
}

// CanonicalBytes returns the deterministic byte encoding of the payload's
// domain fields (the envelope fields excluded), suitable for passing to
// trust.Verifier.Verify. Object keys are sorted so two semantically
// identical payloads serialized in different key order canonicalize to the
// same bytes.
func (s *SignedPayload[T]) CanonicalBytes() ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.raw, &fields); err != nil {
		return nil, fmt.Errorf("canonicalizing payload: %w", err)
	}
	delete(fields, signatureField)
	delete(fields, authorityField)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
