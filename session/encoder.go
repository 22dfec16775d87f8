package session

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	blobFormatVersionCurrent = 2
	blobFormatVersionV1      = 1
)

// ErrBlobCorrupt is returned by Decode when the stored blob cannot be
// interpreted as any known session format.
var ErrBlobCorrupt = errors.New("session blob corrupt")

// ErrBlobVersionUnknown is returned by Decode when the blob carries a format
// version newer than this package understands.
var ErrBlobVersionUnknown = errors.New("session blob format version unknown")

type blobV2 struct {
	Credential  string   `json:"cred"`
	IdentityID  string   `json:"uid"`
	DisplayName string   `json:"name"`
	Attributes  []string `json:"attrs,omitempty"`
	IssuedAt    int64    `json:"iat,omitempty"`
}

// v1 blobs predate the attributes list.
type blobV1 struct {
	Credential  string `json:"cred"`
	IdentityID  string `json:"uid"`
	DisplayName string `json:"name"`
}

// Encode serializes a session for durable storage. The first byte is the
// format version so Decode can reject blobs written by a newer release.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("cannot encode nil session")
	}
	body, err := json.Marshal(blobV2{
		Credential:  string(s.Credential),
		IdentityID:  s.Identity.ID,
		DisplayName: s.Identity.DisplayName,
		Attributes:  s.Identity.Attributes,
		IssuedAt:    s.IssuedAt.Unix(),
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, blobFormatVersionCurrent)
	out = append(out, body...)
	return out, nil
}

// Decode parses a blob produced by Encode, including blobs written by the
// previous format version.
func Decode(blob []byte) (*Session, error) {
	if len(blob) < 2 {
		return nil, ErrBlobCorrupt
	}
	switch blob[0] {
	case blobFormatVersionCurrent:
		var b blobV2
		if err := json.Unmarshal(blob[1:], &b); err != nil {
			return nil, ErrBlobCorrupt
		}
		s := &Session{
			Credential: Credential(b.Credential),
			Identity: Identity{
				ID:          b.IdentityID,
				DisplayName: b.DisplayName,
				Attributes:  b.Attributes,
			},
		}
		if b.IssuedAt > 0 {
			s.IssuedAt = time.Unix(b.IssuedAt, 0)
		}
		return s, nil
	case blobFormatVersionV1:
		var b blobV1
		if err := json.Unmarshal(blob[1:], &b); err != nil {
			return nil, ErrBlobCorrupt
		}
		return &Session{
			Credential: Credential(b.Credential),
			Identity: Identity{
				ID:          b.IdentityID,
				DisplayName: b.DisplayName,
			},
		}, nil
	default:
		return nil, ErrBlobVersionUnknown
	}
}
