package tasks

import (
	"time"

	"outside/internal/aidx"
	"outside/internal/livefeed"
	"outside/internal/models"

	"github.com/google/uuid"
)

// Snapshot is one decoded feed payload
type Snapshot struct {
	Meta    models.SnapshotMeta
	Legs    []models.Leg
	Skipped []error
}

// Decoder turns a fetched payload into legs. fetchedAt is when the fetch started.
type Decoder interface {
	Decode(body []byte, fetchedAt time.Time) (*Snapshot, error)
}

// AIDXDecoder decodes airport operations snapshots. The snapshot time is the document's own
// timestamp.
type AIDXDecoder struct {
	Parser *aidx.Parser
}

func (d *AIDXDecoder) Decode(body []byte, fetchedAt time.Time) (*Snapshot, error) {
	snap, err := d.Parser.Parse(body)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Meta: snap.Meta, Legs: snap.Legs, Skipped: snap.Skipped}, nil
}

// LiveDecoder decodes live radar responses into sightings due at fetchedAt
type LiveDecoder struct {
	Box  livefeed.BoundingBox
	Home string
	Refs *models.ReferenceTables
}

func (d *LiveDecoder) Decode(body []byte, fetchedAt time.Time) (*Snapshot, error) {
	flights, err := livefeed.Parse(body)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Meta: models.SnapshotMeta{
			FetchedAt:     fetchedAt,
			TransactionID: uuid.NewString(),
		},
		Legs: livefeed.Legs(flights, d.Box, d.Home, d.Refs, fetchedAt),
	}, nil
}
