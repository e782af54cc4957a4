package service

import (
	"encoding/json"
	"time"

	"github.com/vita-labs/recallai/internal/domain"
)

// UnitRequest is the wire form of one ingestible unit. It doubles as the
// DLQ payload so a dead-lettered request can be resubmitted byte for byte.
type UnitRequest struct {
	UnitID      string              `json:"unit_id"`
	ChannelID   string              `json:"channel_id"`
	ThreadID    string              `json:"thread_id,omitempty"`
	AuthorID    string              `json:"author_id"`
	Content     string              `json:"content"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	Roles       []string            `json:"roles,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AttachmentPayload is the wire form of one attachment reference.
type AttachmentPayload struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Filename  string `json:"filename"`
}

// ThreadRequest is the wire form of a thread ingestion: an ordered run
// of units sharing a thread.
type ThreadRequest struct {
	Units []UnitRequest `json:"units"`
}

// ToDomain converts the wire form into a domain unit.
func (r UnitRequest) ToDomain() domain.ContentUnit {
	refs := make([]domain.AttachmentRef, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		refs = append(refs, domain.AttachmentRef{
			URL:       a.URL,
			MediaType: a.MediaType,
			Filename:  a.Filename,
		})
	}
	return domain.ContentUnit{
		UnitID:         r.UnitID,
		ChannelID:      r.ChannelID,
		ThreadID:       r.ThreadID,
		AuthorID:       r.AuthorID,
		RawText:        r.Content,
		AttachmentRefs: refs,
		Roles:          r.Roles,
		CreatedAt:      r.CreatedAt,
	}
}

// UnitRequestFromDomain converts a domain unit back to its wire form.
func UnitRequestFromDomain(u domain.ContentUnit) UnitRequest {
	attachments := make([]AttachmentPayload, 0, len(u.AttachmentRefs))
	for _, ref := range u.AttachmentRefs {
		attachments = append(attachments, AttachmentPayload{
			URL:       ref.URL,
			MediaType: ref.MediaType,
			Filename:  ref.Filename,
		})
	}
	return UnitRequest{
		UnitID:      u.UnitID,
		ChannelID:   u.ChannelID,
		ThreadID:    u.ThreadID,
		AuthorID:    u.AuthorID,
		Content:     u.RawText,
		Attachments: attachments,
		Roles:       u.Roles,
		CreatedAt:   u.CreatedAt,
	}
}

// EncodeUnitRequest serializes a unit for DLQ storage.
func EncodeUnitRequest(u domain.ContentUnit) json.RawMessage {
	data, err := json.Marshal(UnitRequestFromDomain(u))
	if err != nil {
		// UnitRequest has no unmarshalable fields; this cannot happen.
		return json.RawMessage(`{}`)
	}
	return data
}

// DecodeUnitRequest parses a DLQ payload back into a domain unit.
func DecodeUnitRequest(raw json.RawMessage) (domain.ContentUnit, error) {
	var req UnitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return domain.ContentUnit{}, err
	}
	return req.ToDomain(), nil
}

// EncodeThreadRequest serializes a whole thread group for DLQ storage.
// A group that fails at embed or store must replay through thread
// ingestion, or the conversational merge would be lost.
func EncodeThreadRequest(units []domain.ContentUnit) json.RawMessage {
	reqs := make([]UnitRequest, 0, len(units))
	for _, u := range units {
		reqs = append(reqs, UnitRequestFromDomain(u))
	}
	data, err := json.Marshal(ThreadRequest{Units: reqs})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

// DecodeReplayRequest parses a DLQ payload into the units it carries and
// reports whether they form a thread group.
func DecodeReplayRequest(raw json.RawMessage) ([]domain.ContentUnit, bool, error) {
	var thread ThreadRequest
	if err := json.Unmarshal(raw, &thread); err == nil && len(thread.Units) > 0 {
		units := make([]domain.ContentUnit, 0, len(thread.Units))
		for _, r := range thread.Units {
			units = append(units, r.ToDomain())
		}
		return units, true, nil
	}

	unit, err := DecodeUnitRequest(raw)
	if err != nil {
		return nil, false, err
	}
	return []domain.ContentUnit{unit}, false, nil
}
