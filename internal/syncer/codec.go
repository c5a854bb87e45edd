package syncer

import (
	"fmt"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// encodeRecord builds the full wire document for a live record: the
// entity payload plus the reserved lifecycle keys.
func encodeRecord(rec models.Record) wire.Document {
	doc := wire.Document{}
	rec.EncodePayload(doc)
	m := rec.Meta()
	doc[wire.KeyID] = m.ID
	doc[wire.KeyUserID] = m.OwnerID
	doc.SetTime(wire.KeyCreatedAt, m.CreatedAt)
	doc.SetTime(wire.KeyUpdatedAt, m.UpdatedAt)
	return doc
}

// tombstoneDoc builds the deletion marker uploaded in place of the payload:
// reserved keys, the deleted flags and a small audit snapshot. Never the
// full payload, never attachment references.
func tombstoneDoc(rec models.Record) wire.Document {
	m := rec.Meta()
	doc := wire.Document{
		wire.KeyID:        m.ID,
		wire.KeyUserID:    m.OwnerID,
		wire.KeyDeleted:   true,
		wire.KeyDeletedBy: m.DeletedBy,
	}
	doc.SetTime(wire.KeyCreatedAt, m.CreatedAt)
	doc.SetTime(wire.KeyUpdatedAt, m.UpdatedAt)
	if m.DeletedAt != nil {
		doc.SetTime(wire.KeyDeletedAt, *m.DeletedAt)
	}
	for k, v := range rec.AuditSnapshot() {
		doc[k] = v
	}
	return doc
}

// decodeDocument parses a remote document into a typed record with status
// synced. Tombstone documents skip payload decoding since they only carry
// the audit snapshot.
func decodeDocument(t models.EntityType, owner string, doc wire.Document) (models.Record, error) {
	id := doc.String(wire.KeyID)
	if id == "" {
		return nil, fmt.Errorf("%w: %s document without id", common.ErrDataCorruption, t)
	}

	rec, err := models.New(t)
	if err != nil {
		return nil, err
	}

	updatedAt, err := doc.UpdatedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %s document %s: %v", common.ErrDataCorruption, t, id, err)
	}
	createdAt, err := doc.Time(wire.KeyCreatedAt)
	if err != nil {
		createdAt = updatedAt
	}

	m := rec.Meta()
	m.ID = id
	m.OwnerID = owner
	m.CreatedAt = createdAt
	m.UpdatedAt = updatedAt
	m.SyncStatus = models.StatusSynced

	if doc.IsTombstone() {
		m.SoftDeleted = true
		deletedAt, err := doc.Time(wire.KeyDeletedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: tombstone %s/%s has no deletion timestamp: %v", common.ErrDataCorruption, t, id, err)
		}
		m.DeletedAt = &deletedAt
		m.DeletedBy = doc.String(wire.KeyDeletedBy)
		return rec, nil
	}

	if err := rec.DecodePayload(doc); err != nil {
		return nil, err
	}
	return rec, nil
}
