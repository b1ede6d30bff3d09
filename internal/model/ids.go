package model

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

// IDGenerator returns a fresh identifier. kind is "task" or "project".
type IDGenerator func(kind string) string

const (
	IDSchemeULID = "ulid"
	IDSchemeUUID = "uuid"
)

func IDGeneratorFor(scheme string) (IDGenerator, error) {
	switch strings.TrimSpace(strings.ToLower(scheme)) {
	case "", IDSchemeULID:
		return ULIDGenerator, nil
	case IDSchemeUUID:
		return UUIDGenerator, nil
	default:
		return nil, fmt.Errorf("%w: unknown id scheme %q", ErrInvalid, scheme)
	}
}

// ULIDGenerator produces sortable ids such as tsk_01HV... and prj_01HV....
func ULIDGenerator(kind string) string {
	prefix := "tsk_"
	if kind == "project" {
		prefix = "prj_"
	}
	now := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(randReader{}, 0))
	if err != nil {
		return fmt.Sprintf("%s%d", prefix, now.UnixNano())
	}
	return prefix + strings.ToUpper(id.String())
}

func UUIDGenerator(string) string {
	return uuid.NewString()
}
